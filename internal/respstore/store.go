package respstore

import (
	"context"
	"fmt"
	"time"

	"opine/internal/config"
	"opine/internal/respstore/postgres"
	"opine/internal/respstore/sqlite"
	"opine/internal/survey"
)

// Store is the persistence contract shared by the storage backends.
//
// Every operation that reasons about lease expiry takes the caller's
// clock explicitly so the review manager, the sweeper, and the tests
// agree on what "now" means.
type Store interface {
	Close() error
	Ping(ctx context.Context) error

	// Insert persists a new response, minting identifiers and timestamps
	// for fields left empty, and returns the stored form.
	Insert(ctx context.Context, resp *survey.Response) (*survey.Response, error)
	// GetByID returns the response or nil when none exists.
	GetByID(ctx context.Context, id string) (*survey.Response, error)

	// ClaimCandidates returns the ordered selection pool for one claim
	// pass: review-eligible responses matching the filter whose lease is
	// absent or expired. Responses skipped after skipCutoff sort last;
	// within each band the oldest come first.
	ClaimCandidates(ctx context.Context, filter survey.ClaimFilter, now, skipCutoff time.Time, limit int) ([]*survey.Response, error)

	// Claim assigns the response to reviewerID until expiresAt, provided
	// it is still review-eligible and unleased at now. The boolean
	// reports whether this caller won the response.
	Claim(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error)
	// Renew extends reviewerID's unexpired lease to expiresAt.
	Renew(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error)
	// Release records the review outcome and clears the lease, provided
	// reviewerID still holds it.
	Release(ctx context.Context, id, reviewerID string, outcome survey.Status, feedback string, now time.Time) (bool, error)
	// Skip returns the response to the pool and stamps LastSkippedAt so
	// the next claims deprioritize it.
	Skip(ctx context.Context, id, reviewerID string, now time.Time) (bool, error)
	// ClearExpiredLeases unassigns every response whose lease expired
	// before now and returns how many were cleared.
	ClearExpiredLeases(ctx context.Context, now time.Time) (int64, error)

	// Buckets pages through (survey, interviewer) groups holding at
	// least minSize review-eligible responses, ordered by interviewer,
	// starting after afterInterviewer.
	Buckets(ctx context.Context, surveyID string, minSize int, afterInterviewer string, limit int) ([]survey.Bucket, error)
	// BucketMembers returns up to limit review-eligible responses of one
	// group, oldest first.
	BucketMembers(ctx context.Context, surveyID, interviewerID string, limit int) ([]*survey.Response, error)

	// ListPage returns responses in the given status matching the cohort
	// filter, keyset-paged by id.
	ListPage(ctx context.Context, filter survey.CohortFilter, status survey.Status, afterID string, limit int) ([]*survey.Response, error)
	// TransitionStatus moves the listed responses from one status to
	// another, skipping any that changed in the meantime.
	TransitionStatus(ctx context.Context, ids []string, from, to survey.Status, now time.Time) (int64, error)
	// DeleteUnleased removes the listed responses except those under an
	// unexpired review lease.
	DeleteUnleased(ctx context.Context, ids []string, now time.Time) (int64, error)

	// CountByStatus counts responses per status, optionally scoped to
	// one survey.
	CountByStatus(ctx context.Context, surveyID string) (map[survey.Status]int, error)
	Health(ctx context.Context, now time.Time) (survey.HealthSummary, error)
}

// Compile-time checks that both backends satisfy the contract.
var (
	_ Store = (*sqlite.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)

// Open constructs the backend selected by [store] backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		return sqlite.Open(cfg)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
