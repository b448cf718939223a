package survey

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a survey response. The
// literal values mix casings because the collection clients wrote the
// review states capitalized and the collection states lowercase; the
// stored data keeps those forms, so the constants do too.
type Status string

const (
	StatusInProgress      Status = "in_progress"
	StatusSubmitted       Status = "submitted"
	StatusPendingApproval Status = "Pending_Approval"
	StatusApproved        Status = "Approved"
	StatusRejected        Status = "Rejected"
	StatusAbandoned       Status = "abandoned"
)

// Interview modes recognized by the queue filters.
const (
	ModeCATI = "cati"
	ModeCAPI = "capi"
)

var allStatuses = []Status{
	StatusInProgress,
	StatusSubmitted,
	StatusPendingApproval,
	StatusApproved,
	StatusRejected,
	StatusAbandoned,
}

var statusLookup = func() map[string]Status {
	lookup := make(map[string]Status, len(allStatuses))
	for _, status := range allStatuses {
		lookup[strings.ToLower(string(status))] = status
	}
	return lookup
}()

// AllStatuses returns the known statuses in lifecycle order.
func AllStatuses() []Status {
	statuses := make([]Status, len(allStatuses))
	copy(statuses, allStatuses)
	return statuses
}

// ParseStatus converts a raw string into a known Status. Matching is
// case-insensitive so that externally supplied values round-trip to the
// canonical stored form.
func ParseStatus(value string) (Status, bool) {
	status, ok := statusLookup[strings.ToLower(strings.TrimSpace(value))]
	return status, ok
}

// IsReviewEligible reports whether responses in this status may be
// handed to reviewers and considered by the duplicate detector.
// Submitted responses stay with the collection pipeline until it
// promotes them to Pending_Approval.
func IsReviewEligible(status Status) bool {
	switch status {
	case StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// ReviewEligibleStatuses returns the statuses admitted to the review
// queue, in selection order.
func ReviewEligibleStatuses() []Status {
	return []Status{StatusPendingApproval, StatusApproved, StatusRejected}
}

// IsTerminal reports whether the status ends the collection lifecycle.
// Terminal responses can still re-enter review: approvals and
// rejections remain claimable for re-audit.
func IsTerminal(status Status) bool {
	switch status {
	case StatusApproved, StatusRejected, StatusAbandoned:
		return true
	}
	return false
}

// Answer is one question's captured value. Value retains whatever shape
// the client submitted: scalar, array of scalars, or nested object.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      any    `json:"value"`
	Type       string `json:"questionType,omitempty"`
}

// Response is a single interviewer submission for a survey.
type Response struct {
	ID            string
	ResponseID    string
	SessionID     string
	SurveyID      string
	InterviewerID string

	Answers []Answer
	// AnswersInvalid is set when the stored answer payload could not be
	// decoded. Such responses are skipped by the duplicate detector and
	// surfaced in scan reports rather than failing the whole pass.
	AnswersInvalid bool

	StartTime      time.Time
	EndTime        time.Time
	TotalTimeSpent int

	AudioRecording string

	Status Status

	// Review lease. AssignedTo and LeaseExpiresAt are set together while
	// a reviewer holds the response and cleared together on release; an
	// expiry in the past is treated everywhere as no lease at all.
	AssignedTo     string
	LeaseExpiresAt *time.Time

	ReviewedBy     string
	ReviewedAt     *time.Time
	ReviewFeedback string

	InterviewMode string
	SelectedAC    string
	QCBatch       string
	IsSample      bool
	LastSkippedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Leased reports whether the response carries an unexpired review lease.
func (r *Response) Leased(now time.Time) bool {
	return r.AssignedTo != "" && r.LeaseExpiresAt != nil && r.LeaseExpiresAt.After(now)
}

// LeasedBy reports whether reviewerID holds an unexpired lease on the
// response.
func (r *Response) LeasedBy(reviewerID string, now time.Time) bool {
	return reviewerID != "" && r.AssignedTo == reviewerID && r.Leased(now)
}

// ClaimFilter narrows the review-queue selection pool. SurveyID is
// required; the remaining fields are optional refinements matched
// exactly when non-empty.
type ClaimFilter struct {
	SurveyID      string
	InterviewMode string
	SelectedAC    string
	QCBatch       string
}

// CohortFilter selects responses for bulk maintenance operations such
// as cohort restores. Zero-value fields are ignored.
type CohortFilter struct {
	SurveyID      string
	InterviewerID string
	QCBatch       string
	SelectedAC    string
	InterviewMode string
}

// Empty reports whether the filter matches everything. Bulk operations
// refuse empty filters so a typo cannot sweep an entire deployment.
func (f CohortFilter) Empty() bool {
	return f.SurveyID == "" && f.InterviewerID == "" && f.QCBatch == "" && f.SelectedAC == "" && f.InterviewMode == ""
}

// Bucket identifies one (survey, interviewer) duplicate-candidate group
// together with its review-eligible member count.
type Bucket struct {
	SurveyID      string
	InterviewerID string
	Count         int
}

// HealthSummary aggregates response counts for the key lifecycle states
// plus the number of responses under an unexpired review lease.
type HealthSummary struct {
	Total          int
	InProgress     int
	Submitted      int
	AwaitingReview int
	Approved       int
	Rejected       int
	Abandoned      int
	Leased         int
}
