package api

import (
	"time"

	"opine/internal/survey"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// ResponseItem describes a survey response in a transport-friendly
// format.
type ResponseItem struct {
	ID             string          `json:"id"`
	ResponseID     string          `json:"responseId,omitempty"`
	SessionID      string          `json:"sessionId,omitempty"`
	SurveyID       string          `json:"surveyId"`
	InterviewerID  string          `json:"interviewerId"`
	Status         string          `json:"status"`
	InterviewMode  string          `json:"interviewMode,omitempty"`
	SelectedAC     string          `json:"selectedAC,omitempty"`
	QCBatch        string          `json:"qcBatch,omitempty"`
	IsSample       bool            `json:"isSample,omitempty"`
	StartTime      string          `json:"startTime,omitempty"`
	EndTime        string          `json:"endTime,omitempty"`
	TotalTimeSpent int             `json:"totalTimeSpent"`
	AudioRecording string          `json:"audioRecording,omitempty"`
	Answers        []survey.Answer `json:"answers,omitempty"`
	AnswersInvalid bool            `json:"answersInvalid,omitempty"`
	AssignedTo     string          `json:"assignedTo,omitempty"`
	LeaseExpiresAt string          `json:"leaseExpiresAt,omitempty"`
	ReviewedBy     string          `json:"reviewedBy,omitempty"`
	ReviewedAt     string          `json:"reviewedAt,omitempty"`
	ReviewFeedback string          `json:"reviewFeedback,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
}

// ClaimRequest asks for the next reviewable response. SurveyID is
// required; the remaining filters narrow the pool when set.
type ClaimRequest struct {
	ReviewerID    string `json:"reviewerId"`
	SurveyID      string `json:"surveyId"`
	InterviewMode string `json:"interviewMode,omitempty"`
	SelectedAC    string `json:"selectedAC,omitempty"`
	QCBatch       string `json:"qcBatch,omitempty"`
}

// ClaimResult reports a claim outcome. Available is false when the
// pool is exhausted; Response and ExpiresAt are set only on success.
type ClaimResult struct {
	Available bool          `json:"available"`
	Response  *ResponseItem `json:"response,omitempty"`
	ExpiresAt string        `json:"expiresAt,omitempty"`
}

// RenewRequest extends the caller's lease on a claimed response.
type RenewRequest struct {
	ResponseID string `json:"responseId"`
	ReviewerID string `json:"reviewerId"`
}

// RenewResult reports the refreshed lease deadline.
type RenewResult struct {
	OK        bool   `json:"ok"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

// ReleaseRequest records a review verdict. Outcome is "approved" or
// "rejected".
type ReleaseRequest struct {
	ResponseID string `json:"responseId"`
	ReviewerID string `json:"reviewerId"`
	Outcome    string `json:"outcome"`
	Feedback   string `json:"feedback,omitempty"`
}

// SkipRequest returns a response to the pool without a verdict.
type SkipRequest struct {
	ResponseID string `json:"responseId"`
	ReviewerID string `json:"reviewerId"`
}

// AckResult acknowledges a mutation with no payload of its own.
type AckResult struct {
	OK bool `json:"ok"`
}

// DuplicateItem is one confirmed duplicate inside a group, with its
// start-time offset from the group original in milliseconds.
type DuplicateItem struct {
	ID               string `json:"id"`
	TimeDifferenceMs int64  `json:"timeDifferenceMs"`
}

// DuplicateGroupItem is one duplicate group: the id of the original
// (earliest) submission and the copies consumed into its cluster.
type DuplicateGroupItem struct {
	InterviewerID string          `json:"interviewerId"`
	Original      string          `json:"original"`
	Duplicates    []DuplicateItem `json:"duplicates"`
}

// ScanCounts tallies one duplicate scan.
type ScanCounts struct {
	Scanned    int `json:"scanned"`
	Buckets    int `json:"buckets"`
	Groups     int `json:"groups"`
	Duplicates int `json:"duplicates"`
	Malformed  int `json:"malformed"`
	Truncated  int `json:"truncated"`
}

// ScanReport is the transport form of a duplicate scan.
type ScanReport struct {
	Survey     string               `json:"survey"`
	Groups     []DuplicateGroupItem `json:"groups"`
	Counts     ScanCounts           `json:"counts"`
	Errors     []string             `json:"errors,omitempty"`
	StartedAt  string               `json:"startedAt,omitempty"`
	FinishedAt string               `json:"finishedAt,omitempty"`
}

// RestoreRequest moves a cohort of responses between statuses. At
// least one cohort field must be set.
type RestoreRequest struct {
	SurveyID      string `json:"surveyId,omitempty"`
	InterviewerID string `json:"interviewerId,omitempty"`
	QCBatch       string `json:"qcBatch,omitempty"`
	SelectedAC    string `json:"selectedAC,omitempty"`
	InterviewMode string `json:"interviewMode,omitempty"`
	FromStatus    string `json:"fromStatus"`
	ToStatus      string `json:"toStatus"`
}

// RestoreResult reports how many responses matched the cohort and how
// many actually transitioned. Matched exceeding Updated means some
// rows changed status between listing and transition.
type RestoreResult struct {
	Matched int64 `json:"matched"`
	Updated int64 `json:"updated"`
}

// PurgeResult reports a duplicate purge. Retained counts ids that were
// requested but kept, either because a reviewer holds them or because
// they were already gone.
type PurgeResult struct {
	Requested int   `json:"requested"`
	Deleted   int64 `json:"deleted"`
	Retained  int64 `json:"retained"`
}

// HealthReport summarizes response counts by lifecycle state.
type HealthReport struct {
	Total          int `json:"total"`
	InProgress     int `json:"inProgress"`
	Submitted      int `json:"submitted"`
	AwaitingReview int `json:"awaitingReview"`
	Approved       int `json:"approved"`
	Rejected       int `json:"rejected"`
	Abandoned      int `json:"abandoned"`
	Leased         int `json:"leased"`
}

// StatusReport aggregates daemon runtime information for API consumers.
type StatusReport struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	Backend      string       `json:"backend"`
	DatabasePath string       `json:"databasePath,omitempty"`
	LockFilePath string       `json:"lockFilePath,omitempty"`
	Health       HealthReport `json:"health"`
}

// StatsResponse provides a normalized status-count payload.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// LogEvent is the transport form of one streamed daemon log line.
type LogEvent struct {
	Sequence      uint64            `json:"seq"`
	Timestamp     time.Time         `json:"ts"`
	Level         string            `json:"level"`
	Message       string            `json:"msg"`
	Component     string            `json:"component,omitempty"`
	SurveyID      string            `json:"surveyId,omitempty"`
	ResponseID    string            `json:"responseId,omitempty"`
	ReviewerID    string            `json:"reviewerId,omitempty"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Details       []DetailField     `json:"details,omitempty"`
}

// DetailField is a rendered label/value pair attached to a log event.
type DetailField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// LogStreamResponse pages through buffered daemon log events. Next is
// the cursor to pass as since on the following request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// TestNotifyResult reports a test push attempt. Message explains any
// unsent outcome, such as a missing topic.
type TestNotifyResult struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}

// StatusLine is one labeled status row with a severity hint for
// rendering: ok, warn, error, or info.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DatabaseDiagnostics carries backend self-inspection results for the
// health command.
type DatabaseDiagnostics struct {
	Path           string   `json:"path"`
	Exists         bool     `json:"exists"`
	Readable       bool     `json:"readable"`
	TableExists    bool     `json:"tableExists"`
	MissingColumns []string `json:"missingColumns,omitempty"`
	IntegrityOK    bool     `json:"integrityOk"`
	TotalResponses int      `json:"totalResponses"`
	Error          string   `json:"error,omitempty"`
}
