package logging

// Standardized structured logging keys. The console handler and the log
// event stream key off these names, so records should emit them through
// the constants rather than ad-hoc strings.
const (
	// FieldComponent names the subsystem that produced the record.
	FieldComponent = "component"
	// FieldSurveyID scopes a record to one survey.
	FieldSurveyID = "survey_id"
	// FieldResponseID scopes a record to one stored response.
	FieldResponseID = "response_id"
	// FieldReviewerID identifies the reviewer acting on a response.
	FieldReviewerID = "reviewer_id"
	// FieldCorrelationID ties a record to the API request that caused it.
	FieldCorrelationID = "correlation_id"
	// FieldSessionID marks every record of one diagnostic daemon run.
	FieldSessionID = "session_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldEventType is a stable machine-readable name for notable events.
	FieldEventType = "event_type"
	// FieldErrorCode carries the wire error code attached to a failure.
	FieldErrorCode = "error_code"
	// FieldErrorHint suggests the operator's next step after a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact states the user-facing consequence of a warning.
	FieldImpact = "impact"
)
