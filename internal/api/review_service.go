package api

import (
	"context"
	"errors"
	"strings"

	"opine/internal/lease"
	"opine/internal/survey"
)

// ReviewManager abstracts the lease operations the review API needs.
type ReviewManager interface {
	ClaimNext(ctx context.Context, reviewerID string, filter survey.ClaimFilter) (*survey.Response, error)
	Renew(ctx context.Context, id, reviewerID string) (*survey.Response, error)
	Release(ctx context.Context, id, reviewerID string, outcome survey.Status, feedback string) (*survey.Response, error)
	Skip(ctx context.Context, id, reviewerID string) error
}

// ReviewService exposes the review-assignment operations as DTO
// round-trips.
type ReviewService struct {
	manager ReviewManager
}

// NewReviewService constructs a ReviewService around the provided
// manager.
func NewReviewService(manager ReviewManager) *ReviewService {
	if manager == nil {
		return nil
	}
	return &ReviewService{manager: manager}
}

// Claim hands the caller the next reviewable response. An exhausted
// pool is a routine outcome and comes back as available:false with a
// nil error.
func (s *ReviewService) Claim(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	if s == nil || s.manager == nil {
		return ClaimResult{}, nil
	}
	reviewerID := strings.TrimSpace(req.ReviewerID)
	if reviewerID == "" {
		return ClaimResult{}, invalid("reviewerId is required")
	}
	if strings.TrimSpace(req.SurveyID) == "" {
		return ClaimResult{}, invalid("surveyId is required")
	}

	resp, err := s.manager.ClaimNext(ctx, reviewerID, survey.ClaimFilter{
		SurveyID:      req.SurveyID,
		InterviewMode: req.InterviewMode,
		SelectedAC:    req.SelectedAC,
		QCBatch:       req.QCBatch,
	})
	if errors.Is(err, lease.ErrNoAvailableWork) {
		return ClaimResult{Available: false}, nil
	}
	if err != nil {
		return ClaimResult{}, err
	}
	dto := FromResponse(resp)
	return ClaimResult{Available: true, Response: &dto, ExpiresAt: dto.LeaseExpiresAt}, nil
}

// Renew extends the caller's lease and reports the new deadline.
func (s *ReviewService) Renew(ctx context.Context, req RenewRequest) (RenewResult, error) {
	if s == nil || s.manager == nil {
		return RenewResult{}, nil
	}
	if err := requireIdentity(req.ResponseID, req.ReviewerID); err != nil {
		return RenewResult{}, err
	}
	resp, err := s.manager.Renew(ctx, req.ResponseID, req.ReviewerID)
	if err != nil {
		return RenewResult{}, err
	}
	result := RenewResult{OK: true}
	if resp != nil && resp.LeaseExpiresAt != nil {
		result.ExpiresAt = FormatTime(*resp.LeaseExpiresAt)
	}
	return result, nil
}

// Release records the caller's verdict and frees the response.
func (s *ReviewService) Release(ctx context.Context, req ReleaseRequest) (AckResult, error) {
	if s == nil || s.manager == nil {
		return AckResult{}, nil
	}
	if err := requireIdentity(req.ResponseID, req.ReviewerID); err != nil {
		return AckResult{}, err
	}
	outcome, ok := survey.ParseStatus(req.Outcome)
	if !ok || (outcome != survey.StatusApproved && outcome != survey.StatusRejected) {
		return AckResult{}, invalid("outcome must be approved or rejected, got %q", req.Outcome)
	}
	if _, err := s.manager.Release(ctx, req.ResponseID, req.ReviewerID, outcome, req.Feedback); err != nil {
		return AckResult{}, err
	}
	return AckResult{OK: true}, nil
}

// Skip returns the response to the pool without a verdict.
func (s *ReviewService) Skip(ctx context.Context, req SkipRequest) (AckResult, error) {
	if s == nil || s.manager == nil {
		return AckResult{}, nil
	}
	if err := requireIdentity(req.ResponseID, req.ReviewerID); err != nil {
		return AckResult{}, err
	}
	if err := s.manager.Skip(ctx, req.ResponseID, req.ReviewerID); err != nil {
		return AckResult{}, err
	}
	return AckResult{OK: true}, nil
}

func requireIdentity(responseID, reviewerID string) error {
	if strings.TrimSpace(responseID) == "" {
		return invalid("responseId is required")
	}
	if strings.TrimSpace(reviewerID) == "" {
		return invalid("reviewerId is required")
	}
	return nil
}
