package testsupport

import (
	"context"
	"testing"
	"time"

	"opine/internal/config"
	"opine/internal/respstore/sqlite"
	"opine/internal/survey"
)

// MustOpenStore opens a sqlite response store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(cfg)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedResponse inserts the response and fails the test on error.
func SeedResponse(t testing.TB, store *sqlite.Store, resp *survey.Response) *survey.Response {
	t.Helper()

	stored, err := store.Insert(context.Background(), resp)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return stored
}

// NewPending inserts a minimal review-eligible response for the given
// survey and interviewer.
func NewPending(t testing.TB, store *sqlite.Store, surveyID, interviewerID string) *survey.Response {
	t.Helper()

	return SeedResponse(t, store, &survey.Response{
		SurveyID:      surveyID,
		InterviewerID: interviewerID,
		Status:        survey.StatusPendingApproval,
		StartTime:     time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 2, 1, 9, 20, 0, 0, time.UTC),
	})
}
