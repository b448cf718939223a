// Package lease assigns survey responses to reviewers. An assignment
// is a lease: it names the reviewer and an expiry, and every mutation
// under it re-proves ownership against the store in the same statement
// that applies the change. There is no lock service and no fencing
// beyond the store's conditional updates; when the guard fails the
// caller learns it lost the response and moves on.
package lease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"opine/internal/config"
	"opine/internal/logging"
	"opine/internal/survey"
)

// Store is the slice of the response store the manager drives.
type Store interface {
	ClaimCandidates(ctx context.Context, filter survey.ClaimFilter, now, skipCutoff time.Time, limit int) ([]*survey.Response, error)
	Claim(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error)
	Renew(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error)
	Release(ctx context.Context, id, reviewerID string, outcome survey.Status, feedback string, now time.Time) (bool, error)
	Skip(ctx context.Context, id, reviewerID string, now time.Time) (bool, error)
	ClearExpiredLeases(ctx context.Context, now time.Time) (int64, error)
	GetByID(ctx context.Context, id string) (*survey.Response, error)
}

// Excluder supplies the advisory set of response ids to pass over while
// claiming, typically known duplicates awaiting a purge decision.
type Excluder interface {
	Excluded(ctx context.Context, surveyID string) map[string]struct{}
}

// Manager coordinates the review-assignment lifecycle.
type Manager struct {
	store    Store
	cfg      *config.Config
	logger   *slog.Logger
	excluder Excluder
	now      func() time.Time
}

// Option customises the Manager.
type Option func(*Manager)

// WithExcluder wires the duplicate-exclusion advisory into claiming.
func WithExcluder(excluder Excluder) Option {
	return func(m *Manager) {
		if excluder != nil {
			m.excluder = excluder
		}
	}
}

// WithNowFunc overrides the manager's clock (primarily for tests).
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a lease manager bound to the supplied store and
// configuration.
func NewManager(store Store, cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "lease"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ClaimNext assigns the next reviewable response to reviewerID and
// returns it with the lease recorded. Candidates are tried oldest
// first, recently skipped ones last; losing a candidate to a concurrent
// claimant just moves on to the next. The search is bounded by the
// configured page size and pass count, and an exhausted bound reports
// ErrNoAvailableWork.
func (m *Manager) ClaimNext(ctx context.Context, reviewerID string, filter survey.ClaimFilter) (*survey.Response, error) {
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return nil, errors.New("reviewer id is required")
	}
	filter.SurveyID = strings.TrimSpace(filter.SurveyID)
	if filter.SurveyID == "" {
		return nil, errors.New("survey id is required")
	}

	var excluded map[string]struct{}
	if m.excluder != nil {
		excluded = m.excluder.Excluded(ctx, filter.SurveyID)
	}

	pageSize := m.cfg.Review.ClaimPageSize
	// Excluded responses occupy candidate slots without ever being
	// claimable, so widen the fetch to keep real candidates in reach.
	fetchLimit := pageSize + len(excluded)

	for pass := 0; pass < m.cfg.Review.ClaimPasses; pass++ {
		now := m.now().UTC()
		skipCutoff := now.Add(-m.cfg.SkipCooldown())
		candidates, err := m.store.ClaimCandidates(ctx, filter, now, skipCutoff, fetchLimit)
		if err != nil {
			return nil, fmt.Errorf("list claim candidates: %w", err)
		}
		if len(candidates) == 0 {
			break
		}

		attempted := 0
		for _, candidate := range candidates {
			if _, skip := excluded[candidate.ID]; skip {
				continue
			}
			if attempted >= pageSize {
				break
			}
			attempted++

			expiresAt := now.Add(m.cfg.LeaseTTL())
			won, err := m.store.Claim(ctx, candidate.ID, reviewerID, expiresAt, now)
			if err != nil {
				return nil, fmt.Errorf("claim response: %w", err)
			}
			if !won {
				// Someone else got there first; the pool has moved on
				// and so do we.
				continue
			}

			claimed, err := m.store.GetByID(ctx, candidate.ID)
			if err != nil {
				return nil, fmt.Errorf("load claimed response: %w", err)
			}
			if claimed == nil {
				return nil, fmt.Errorf("%w: response %s vanished after claim", ErrNotFound, candidate.ID)
			}
			m.logger.Info("response claimed",
				logging.String("response_id", claimed.ID),
				logging.String("survey_id", claimed.SurveyID),
				logging.String("reviewer_id", reviewerID),
				logging.Int("pass", pass+1),
				logging.Duration("lease_ttl", m.cfg.LeaseTTL()))
			return claimed, nil
		}
		if attempted == 0 {
			// Every visible candidate is excluded; another pass would
			// fetch the same set.
			break
		}
	}
	return nil, ErrNoAvailableWork
}

// Renew extends reviewerID's lease by a full TTL from now and returns
// the refreshed response. A failed guard distinguishes a vanished
// response (ErrNotFound) from a lease held by nobody or somebody else
// (ErrOwnershipLost).
func (m *Manager) Renew(ctx context.Context, id, reviewerID string) (*survey.Response, error) {
	now := m.now().UTC()
	ok, err := m.store.Renew(ctx, id, reviewerID, now.Add(m.cfg.LeaseTTL()), now)
	if err != nil {
		return nil, fmt.Errorf("renew lease: %w", err)
	}
	if !ok {
		return nil, m.ownershipError(ctx, id)
	}
	return m.store.GetByID(ctx, id)
}

// Release records the review verdict and returns the response to an
// unassigned state. Only a terminal verdict is accepted; giving a
// response back without one is Skip's job.
func (m *Manager) Release(ctx context.Context, id, reviewerID string, outcome survey.Status, feedback string) (*survey.Response, error) {
	if outcome != survey.StatusApproved && outcome != survey.StatusRejected {
		return nil, fmt.Errorf("release outcome must be %s or %s, got %q", survey.StatusApproved, survey.StatusRejected, outcome)
	}
	now := m.now().UTC()
	ok, err := m.store.Release(ctx, id, reviewerID, outcome, strings.TrimSpace(feedback), now)
	if err != nil {
		return nil, fmt.Errorf("release lease: %w", err)
	}
	if !ok {
		return nil, m.ownershipError(ctx, id)
	}
	m.logger.Info("review recorded",
		logging.String("response_id", id),
		logging.String("reviewer_id", reviewerID),
		logging.String("outcome", string(outcome)))
	return m.store.GetByID(ctx, id)
}

// Skip returns the response to the pool without a verdict and stamps it
// so claims deprioritize it for the cooldown window.
func (m *Manager) Skip(ctx context.Context, id, reviewerID string) error {
	now := m.now().UTC()
	ok, err := m.store.Skip(ctx, id, reviewerID, now)
	if err != nil {
		return fmt.Errorf("skip response: %w", err)
	}
	if !ok {
		return m.ownershipError(ctx, id)
	}
	m.logger.Info("response skipped",
		logging.String("response_id", id),
		logging.String("reviewer_id", reviewerID),
		logging.Duration("cooldown", m.cfg.SkipCooldown()))
	return nil
}

// SweepExpired clears every lapsed lease in one pass. Expiry is already
// passive — an expired lease loses every guard — so sweeping only keeps
// assignment fields from reading stale between claims.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	cleared, err := m.store.ClearExpiredLeases(ctx, m.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep expired leases: %w", err)
	}
	if cleared > 0 {
		m.logger.Info("released expired leases", logging.Int64("count", cleared))
	}
	return cleared, nil
}

// ownershipError explains a failed lease guard: the response is gone,
// or it is simply no longer ours.
func (m *Manager) ownershipError(ctx context.Context, id string) error {
	resp, err := m.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("verify lease after failed guard: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return fmt.Errorf("%w: response %s", ErrOwnershipLost, id)
}
