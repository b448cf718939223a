package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opine/internal/survey"
	"opine/internal/testsupport"
)

func TestStatsCountsByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	seedCohortMember(t, store, survey.StatusPendingApproval, "")
	seedCohortMember(t, store, survey.StatusPendingApproval, "")
	seedCohortMember(t, store, survey.StatusApproved, "")

	stats, err := svc.Stats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats["Pending_Approval"])
	assert.Equal(t, 1, stats["Approved"])
}

func TestStatsScopedToSurvey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	seedCohortMember(t, store, survey.StatusPendingApproval, "")
	testsupport.SeedResponse(t, store, &survey.Response{
		SurveyID:      "SVY-2",
		InterviewerID: "int-9",
		Status:        survey.StatusPendingApproval,
	})

	stats, err := svc.Stats(context.Background(), "SVY-2")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Pending_Approval": 1}, stats)
}

func TestHealthCountsLeases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	leased := seedCohortMember(t, store, survey.StatusPendingApproval, "")
	seedCohortMember(t, store, survey.StatusPendingApproval, "")
	now := time.Now().UTC()
	won, err := store.Claim(context.Background(), leased.ID, "rev-1", now.Add(30*time.Minute), now)
	require.NoError(t, err)
	require.True(t, won)

	health, err := svc.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, health.Total)
	assert.Equal(t, 2, health.AwaitingReview)
	assert.Equal(t, 1, health.Leased)
}

func TestDiagnosticsInspectsSQLiteBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)

	seedCohortMember(t, store, survey.StatusPendingApproval, "")

	diag, err := svc.Diagnostics(context.Background())
	require.NoError(t, err)
	require.NotNil(t, diag)
	assert.True(t, diag.Exists)
	assert.True(t, diag.Readable)
	assert.True(t, diag.TableExists)
	assert.True(t, diag.IntegrityOK)
	assert.Empty(t, diag.MissingColumns)
	assert.Equal(t, 1, diag.TotalResponses)
}
