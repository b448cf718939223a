package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opine/internal/lease"
	"opine/internal/survey"
)

type fakeManager struct {
	next       *survey.Response
	err        error
	lastFilter survey.ClaimFilter
	released   struct {
		outcome  survey.Status
		feedback string
	}
	skipped bool
}

func (f *fakeManager) ClaimNext(_ context.Context, _ string, filter survey.ClaimFilter) (*survey.Response, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.next, nil
}

func (f *fakeManager) Renew(context.Context, string, string) (*survey.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.next, nil
}

func (f *fakeManager) Release(_ context.Context, _, _ string, outcome survey.Status, feedback string) (*survey.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.released.outcome = outcome
	f.released.feedback = feedback
	return f.next, nil
}

func (f *fakeManager) Skip(context.Context, string, string) error {
	if f.err != nil {
		return f.err
	}
	f.skipped = true
	return nil
}

func leasedResponse(expiry time.Time) *survey.Response {
	return &survey.Response{
		ID:             "resp-1",
		SurveyID:       "SVY-1",
		InterviewerID:  "int-1",
		Status:         survey.StatusPendingApproval,
		AssignedTo:     "rev-1",
		LeaseExpiresAt: &expiry,
	}
}

func TestClaimReturnsLeasedResponse(t *testing.T) {
	expiry := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	mgr := &fakeManager{next: leasedResponse(expiry)}
	svc := NewReviewService(mgr)

	result, err := svc.Claim(context.Background(), ClaimRequest{
		ReviewerID:    "rev-1",
		SurveyID:      "SVY-1",
		InterviewMode: survey.ModeCATI,
	})
	require.NoError(t, err)

	assert.True(t, result.Available)
	require.NotNil(t, result.Response)
	assert.Equal(t, "resp-1", result.Response.ID)
	assert.Equal(t, "2026-03-02T10:30:00.000Z", result.ExpiresAt)
	assert.Equal(t, survey.ModeCATI, mgr.lastFilter.InterviewMode)
}

func TestClaimMapsEmptyPoolToUnavailable(t *testing.T) {
	svc := NewReviewService(&fakeManager{err: lease.ErrNoAvailableWork})

	result, err := svc.Claim(context.Background(), ClaimRequest{ReviewerID: "rev-1", SurveyID: "SVY-1"})
	require.NoError(t, err, "an empty pool is not a failure")
	assert.False(t, result.Available)
	assert.Nil(t, result.Response)
}

func TestClaimValidatesRequest(t *testing.T) {
	svc := NewReviewService(&fakeManager{})

	_, err := svc.Claim(context.Background(), ClaimRequest{SurveyID: "SVY-1"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Claim(context.Background(), ClaimRequest{ReviewerID: "rev-1"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestClaimPropagatesStoreFaults(t *testing.T) {
	fault := errors.New("disk I/O error")
	svc := NewReviewService(&fakeManager{err: fault})

	_, err := svc.Claim(context.Background(), ClaimRequest{ReviewerID: "rev-1", SurveyID: "SVY-1"})
	require.ErrorIs(t, err, fault)
}

func TestRenewReportsNewDeadline(t *testing.T) {
	expiry := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	svc := NewReviewService(&fakeManager{next: leasedResponse(expiry)})

	result, err := svc.Renew(context.Background(), RenewRequest{ResponseID: "resp-1", ReviewerID: "rev-1"})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, "2026-03-02T11:00:00.000Z", result.ExpiresAt)
}

func TestRenewSurfacesOwnershipLoss(t *testing.T) {
	svc := NewReviewService(&fakeManager{err: lease.ErrOwnershipLost})

	_, err := svc.Renew(context.Background(), RenewRequest{ResponseID: "resp-1", ReviewerID: "rev-1"})
	require.ErrorIs(t, err, lease.ErrOwnershipLost)
}

func TestReleaseParsesOutcome(t *testing.T) {
	mgr := &fakeManager{next: leasedResponse(time.Now())}
	svc := NewReviewService(mgr)

	result, err := svc.Release(context.Background(), ReleaseRequest{
		ResponseID: "resp-1",
		ReviewerID: "rev-1",
		Outcome:    "approved",
		Feedback:   "clean interview",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, survey.StatusApproved, mgr.released.outcome)
	assert.Equal(t, "clean interview", mgr.released.feedback)
}

func TestReleaseRejectsNonVerdictOutcome(t *testing.T) {
	svc := NewReviewService(&fakeManager{})

	for _, outcome := range []string{"", "pending_approval", "abandoned", "maybe"} {
		_, err := svc.Release(context.Background(), ReleaseRequest{
			ResponseID: "resp-1",
			ReviewerID: "rev-1",
			Outcome:    outcome,
		})
		assert.ErrorIs(t, err, ErrValidation, "outcome %q must be rejected", outcome)
	}
}

func TestSkipAcknowledges(t *testing.T) {
	mgr := &fakeManager{}
	svc := NewReviewService(mgr)

	result, err := svc.Skip(context.Background(), SkipRequest{ResponseID: "resp-1", ReviewerID: "rev-1"})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.True(t, mgr.skipped)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"ownership lost", lease.ErrOwnershipLost, http.StatusConflict},
		{"wrapped ownership lost", errors.Join(errors.New("release lease"), lease.ErrOwnershipLost), http.StatusConflict},
		{"not found", lease.ErrNotFound, http.StatusNotFound},
		{"validation", invalid("surveyId is required"), http.StatusBadRequest},
		{"store fault", errors.New("disk I/O error"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestPayloadForErrorShapes(t *testing.T) {
	payload := PayloadForError(lease.ErrOwnershipLost)
	assert.Equal(t, CodeOwnershipLost, payload.Error)
	assert.Equal(t, "assignment expired, request a new item", payload.Message)

	payload = PayloadForError(invalid("surveyId is required"))
	assert.Equal(t, CodeInvalid, payload.Error)
	assert.Equal(t, "surveyId is required", payload.Message)

	payload = PayloadForError(errors.New("pq: connection reset"))
	assert.Equal(t, CodeInternal, payload.Error)
	assert.NotContains(t, payload.Message, "pq:", "store details must not leak to clients")
}
