package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"opine/internal/survey"
)

// timeLayout is RFC3339 with a fixed-width fraction so stored values
// stay correctly ordered under SQL string comparison; RFC3339Nano trims
// trailing zeros, which breaks lexicographic ordering of sub-second
// timestamps.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func optionalTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

// eligiblePlaceholders appends the review-eligible statuses to args and
// returns the matching placeholder list for an IN clause.
func eligiblePlaceholders(args *[]any) string {
	statuses := survey.ReviewEligibleStatuses()
	for _, status := range statuses {
		*args = append(*args, string(status))
	}
	return makePlaceholders(len(statuses))
}

const responseColumns = `id, response_id, session_id, survey_id, interviewer_id, status, answers,
    start_time, end_time, total_time_spent, audio_recording,
    assigned_to, lease_expires_at, reviewed_by, reviewed_at, review_feedback,
    interview_mode, selected_ac, qc_batch, is_sample, last_skipped_at,
    created_at, updated_at`

func scanResponse(scanner interface{ Scan(dest ...any) error }) (*survey.Response, error) {
	var (
		id             string
		responseID     string
		sessionID      string
		surveyID       string
		interviewerID  string
		statusStr      string
		answersRaw     sql.NullString
		startRaw       sql.NullString
		endRaw         sql.NullString
		totalTimeSpent int
		audioRecording sql.NullString
		assignedTo     sql.NullString
		leaseRaw       sql.NullString
		reviewedBy     sql.NullString
		reviewedRaw    sql.NullString
		reviewFeedback sql.NullString
		interviewMode  string
		selectedAC     string
		qcBatch        string
		isSample       sql.NullInt64
		skippedRaw     sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&responseID,
		&sessionID,
		&surveyID,
		&interviewerID,
		&statusStr,
		&answersRaw,
		&startRaw,
		&endRaw,
		&totalTimeSpent,
		&audioRecording,
		&assignedTo,
		&leaseRaw,
		&reviewedBy,
		&reviewedRaw,
		&reviewFeedback,
		&interviewMode,
		&selectedAC,
		&qcBatch,
		&isSample,
		&skippedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	resp := &survey.Response{
		ID:             id,
		ResponseID:     responseID,
		SessionID:      sessionID,
		SurveyID:       surveyID,
		InterviewerID:  interviewerID,
		Status:         survey.Status(statusStr),
		TotalTimeSpent: totalTimeSpent,
		AudioRecording: audioRecording.String,
		AssignedTo:     assignedTo.String,
		ReviewedBy:     reviewedBy.String,
		ReviewFeedback: reviewFeedback.String,
		InterviewMode:  interviewMode,
		SelectedAC:     selectedAC,
		QCBatch:        qcBatch,
	}
	if isSample.Valid {
		resp.IsSample = isSample.Int64 != 0
	}

	if answersRaw.Valid && answersRaw.String != "" {
		if err := json.Unmarshal([]byte(answersRaw.String), &resp.Answers); err != nil {
			resp.Answers = nil
			resp.AnswersInvalid = true
		}
	}

	if start, err := parseTimeString(startRaw.String); err == nil {
		resp.StartTime = start
	}
	if end, err := parseTimeString(endRaw.String); err == nil {
		resp.EndTime = end
	}
	if lease, err := parseTimeString(leaseRaw.String); err == nil {
		resp.LeaseExpiresAt = &lease
	}
	if reviewed, err := parseTimeString(reviewedRaw.String); err == nil {
		resp.ReviewedAt = &reviewed
	}
	if skipped, err := parseTimeString(skippedRaw.String); err == nil {
		resp.LastSkippedAt = &skipped
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		resp.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		resp.UpdatedAt = updated
	}
	return resp, nil
}
