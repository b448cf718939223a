package lease

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"opine/internal/config"
	"opine/internal/logging"
	"opine/internal/respstore/sqlite"
	"opine/internal/survey"
	"opine/internal/testsupport"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedExcluder map[string]struct{}

func (f fixedExcluder) Excluded(context.Context, string) map[string]struct{} {
	return f
}

func newManager(t *testing.T, cfg *config.Config, store *sqlite.Store, opts ...Option) (*Manager, *clock) {
	t.Helper()
	c := newClock()
	opts = append([]Option{WithNowFunc(c.Now)}, opts...)
	return NewManager(store, cfg, logging.NewNop(), opts...), c
}

// seedAged inserts a pending response whose creation time is offset
// from the clock base, so claim order is under test control.
func seedAged(t *testing.T, store *sqlite.Store, surveyID, interviewerID string, age time.Duration) *survey.Response {
	t.Helper()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return testsupport.SeedResponse(t, store, &survey.Response{
		SurveyID:      surveyID,
		InterviewerID: interviewerID,
		Status:        survey.StatusPendingApproval,
		StartTime:     base,
		EndTime:       base.Add(10 * time.Minute),
		CreatedAt:     base.Add(age),
	})
}

func TestClaimNextAssignsOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr, _ := newManager(t, cfg, store)

	newer := seedAged(t, store, "SVY-1", "int-a", 10*time.Minute)
	oldest := seedAged(t, store, "SVY-1", "int-a", 0)

	claimed, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed.ID != oldest.ID {
		t.Fatalf("claimed %s, want oldest %s", claimed.ID, oldest.ID)
	}
	if claimed.AssignedTo != "rev-1" || claimed.LeaseExpiresAt == nil {
		t.Fatalf("lease fields not recorded: %+v", claimed)
	}

	second, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("second ClaimNext: %v", err)
	}
	if second.ID != newer.ID {
		t.Fatalf("second claim got %s, want %s", second.ID, newer.ID)
	}
}

func TestClaimNextValidatesArguments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr, _ := newManager(t, cfg, store)

	if _, err := mgr.ClaimNext(context.Background(), "  ", survey.ClaimFilter{SurveyID: "SVY-1"}); err == nil {
		t.Fatal("expected error for blank reviewer")
	}
	if _, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{}); err == nil {
		t.Fatal("expected error for missing survey id")
	}
}

func TestClaimNextReportsNoAvailableWork(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr, _ := newManager(t, cfg, store)

	// Empty pool.
	if _, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"}); !errors.Is(err, ErrNoAvailableWork) {
		t.Fatalf("empty pool: got %v, want ErrNoAvailableWork", err)
	}

	// Fully leased pool.
	seedAged(t, store, "SVY-1", "int-a", 0)
	if _, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"}); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if _, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{SurveyID: "SVY-1"}); !errors.Is(err, ErrNoAvailableWork) {
		t.Fatalf("leased pool: got %v, want ErrNoAvailableWork", err)
	}
}

func TestClaimNextSkipsExcludedDuplicates(t *testing.T) {
	// Page size 1 makes the excluded response occupy the whole page; the
	// widened fetch must still reach past it.
	cfg := testsupport.NewConfig(t, testsupport.WithClaimBounds(1, 4))
	store := testsupport.MustOpenStore(t, cfg)

	dup := seedAged(t, store, "SVY-1", "int-a", 0)
	good := seedAged(t, store, "SVY-1", "int-a", time.Minute)

	mgr, _ := newManager(t, cfg, store, WithExcluder(fixedExcluder{dup.ID: {}}))

	claimed, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed.ID != good.ID {
		t.Fatalf("claimed %s, want non-duplicate %s", claimed.ID, good.ID)
	}

	// Only the excluded duplicate remains.
	if _, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{SurveyID: "SVY-1"}); !errors.Is(err, ErrNoAvailableWork) {
		t.Fatalf("got %v, want ErrNoAvailableWork when only duplicates remain", err)
	}
}

func TestClaimNextHonorsFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr, _ := newManager(t, cfg, store)

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	testsupport.SeedResponse(t, store, &survey.Response{
		SurveyID:      "SVY-1",
		InterviewerID: "int-a",
		Status:        survey.StatusPendingApproval,
		InterviewMode: survey.ModeCAPI,
		StartTime:     base,
		CreatedAt:     base,
	})
	cati := testsupport.SeedResponse(t, store, &survey.Response{
		SurveyID:      "SVY-1",
		InterviewerID: "int-a",
		Status:        survey.StatusPendingApproval,
		InterviewMode: survey.ModeCATI,
		QCBatch:       "batch-7",
		StartTime:     base,
		CreatedAt:     base.Add(time.Minute),
	})

	claimed, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{
		SurveyID:      "SVY-1",
		InterviewMode: survey.ModeCATI,
		QCBatch:       "batch-7",
	})
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed.ID != cati.ID {
		t.Fatalf("claimed %s, want the filtered match %s", claimed.ID, cati.ID)
	}

	if _, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{
		SurveyID:      "SVY-1",
		InterviewMode: survey.ModeCATI,
		QCBatch:       "batch-7",
	}); !errors.Is(err, ErrNoAvailableWork) {
		t.Fatalf("got %v, want ErrNoAvailableWork once the filtered pool drains", err)
	}
}

func TestLeaseExpiryHandsResponseToNextClaimant(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLeaseMinutes(30))
	store := testsupport.MustOpenStore(t, cfg)
	mgr, clk := newManager(t, cfg, store)

	resp := seedAged(t, store, "SVY-1", "int-a", 0)

	if _, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"}); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// Within the lease the response is owned.
	if _, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{SurveyID: "SVY-1"}); !errors.Is(err, ErrNoAvailableWork) {
		t.Fatalf("live lease should block claims, got %v", err)
	}

	clk.Advance(31 * time.Minute)

	second, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("post-expiry claim: %v", err)
	}
	if second.ID != resp.ID || second.AssignedTo != "rev-2" {
		t.Fatalf("expired response not reassigned: %+v", second)
	}

	// The first reviewer's verdict arrives too late.
	if _, err := mgr.Release(context.Background(), resp.ID, "rev-1", survey.StatusApproved, ""); !errors.Is(err, ErrOwnershipLost) {
		t.Fatalf("stale holder release: got %v, want ErrOwnershipLost", err)
	}

	// The current holder's verdict lands.
	released, err := mgr.Release(context.Background(), resp.ID, "rev-2", survey.StatusApproved, "clean interview")
	if err != nil {
		t.Fatalf("current holder release: %v", err)
	}
	if released.Status != survey.StatusApproved || released.ReviewedBy != "rev-2" {
		t.Fatalf("verdict not recorded: %+v", released)
	}
}

func TestRenewExtendsLease(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLeaseMinutes(30))
	store := testsupport.MustOpenStore(t, cfg)
	mgr, clk := newManager(t, cfg, store)

	resp := seedAged(t, store, "SVY-1", "int-a", 0)
	claimed, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	clk.Advance(20 * time.Minute)
	renewed, err := mgr.Renew(context.Background(), resp.ID, "rev-1")
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	if !renewed.LeaseExpiresAt.After(*claimed.LeaseExpiresAt) {
		t.Fatalf("lease not extended: %v -> %v", claimed.LeaseExpiresAt, renewed.LeaseExpiresAt)
	}

	// A renewed lease survives past the original expiry.
	clk.Advance(15 * time.Minute)
	if _, err := mgr.Renew(context.Background(), resp.ID, "rev-1"); err != nil {
		t.Fatalf("renew within extended lease: %v", err)
	}

	// Once lapsed, renewal reports the loss.
	clk.Advance(31 * time.Minute)
	if _, err := mgr.Renew(context.Background(), resp.ID, "rev-1"); !errors.Is(err, ErrOwnershipLost) {
		t.Fatalf("lapsed renew: got %v, want ErrOwnershipLost", err)
	}
}

func TestRenewDistinguishesMissingResponse(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr, _ := newManager(t, cfg, store)

	if _, err := mgr.Renew(context.Background(), "no-such-id", "rev-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestReleaseRejectsNonTerminalOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr, _ := newManager(t, cfg, store)

	resp := seedAged(t, store, "SVY-1", "int-a", 0)
	if _, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"}); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if _, err := mgr.Release(context.Background(), resp.ID, "rev-1", survey.StatusPendingApproval, ""); err == nil {
		t.Fatal("expected error for non-terminal outcome")
	}
	if _, err := mgr.Release(context.Background(), resp.ID, "rev-1", survey.StatusRejected, "duplicate of earlier visit"); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestSkipDeprioritizesWithinCooldown(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSkipCooldownMinutes(60))
	store := testsupport.MustOpenStore(t, cfg)
	mgr, clk := newManager(t, cfg, store)

	first := seedAged(t, store, "SVY-1", "int-a", 0)
	second := seedAged(t, store, "SVY-1", "int-a", time.Minute)

	claimed, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed.ID != first.ID {
		t.Fatalf("claimed %s, want %s", claimed.ID, first.ID)
	}
	if err := mgr.Skip(context.Background(), first.ID, "rev-1"); err != nil {
		t.Fatalf("Skip: %v", err)
	}

	// The skipped response moves behind its younger sibling.
	next, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("ClaimNext after skip: %v", err)
	}
	if next.ID != second.ID {
		t.Fatalf("claimed %s, want the unskipped %s", next.ID, second.ID)
	}

	// It is still claimable when nothing else is left.
	again, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("ClaimNext for skipped remainder: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("claimed %s, want skipped %s", again.ID, first.ID)
	}

	// After the cooldown lapses, age order applies again.
	if err := mgr.Skip(context.Background(), first.ID, "rev-2"); err != nil {
		t.Fatalf("second skip: %v", err)
	}
	if err := mgr.Skip(context.Background(), second.ID, "rev-1"); err != nil {
		t.Fatalf("skip second: %v", err)
	}
	clk.Advance(61 * time.Minute)
	post, err := mgr.ClaimNext(context.Background(), "rev-3", survey.ClaimFilter{SurveyID: "SVY-1"})
	if err != nil {
		t.Fatalf("post-cooldown claim: %v", err)
	}
	if post.ID != first.ID {
		t.Fatalf("claimed %s, want oldest %s after cooldown", post.ID, first.ID)
	}
}

func TestSweepExpiredClearsLapsedLeases(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLeaseMinutes(30))
	store := testsupport.MustOpenStore(t, cfg)
	mgr, clk := newManager(t, cfg, store)

	seedAged(t, store, "SVY-1", "int-a", 0)
	seedAged(t, store, "SVY-1", "int-b", time.Minute)

	if _, err := mgr.ClaimNext(context.Background(), "rev-1", survey.ClaimFilter{SurveyID: "SVY-1"}); err != nil {
		t.Fatalf("claim one: %v", err)
	}
	if _, err := mgr.ClaimNext(context.Background(), "rev-2", survey.ClaimFilter{SurveyID: "SVY-1"}); err != nil {
		t.Fatalf("claim two: %v", err)
	}

	// Nothing has lapsed yet.
	cleared, err := mgr.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if cleared != 0 {
		t.Fatalf("cleared %d live leases", cleared)
	}

	clk.Advance(31 * time.Minute)
	cleared, err = mgr.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired after expiry: %v", err)
	}
	if cleared != 2 {
		t.Fatalf("cleared = %d, want 2", cleared)
	}
}

func TestConcurrentClaimantsGetDistinctResponses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr, _ := newManager(t, cfg, store)

	const responses = 4
	const claimants = 8
	for i := 0; i < responses; i++ {
		seedAged(t, store, "SVY-1", "int-a", time.Duration(i)*time.Minute)
	}

	var mu sync.Mutex
	claimed := make(map[string]string)
	var starved int

	var g errgroup.Group
	for i := 0; i < claimants; i++ {
		reviewer := "rev-" + string(rune('a'+i))
		g.Go(func() error {
			resp, err := mgr.ClaimNext(context.Background(), reviewer, survey.ClaimFilter{SurveyID: "SVY-1"})
			if errors.Is(err, ErrNoAvailableWork) {
				mu.Lock()
				starved++
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if holder, dup := claimed[resp.ID]; dup {
				return errors.New("response " + resp.ID + " claimed by both " + holder + " and " + reviewer)
			}
			claimed[resp.ID] = reviewer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if len(claimed) != responses {
		t.Fatalf("distinct claims = %d, want %d", len(claimed), responses)
	}
	if starved != claimants-responses {
		t.Fatalf("starved claimants = %d, want %d", starved, claimants-responses)
	}
}
