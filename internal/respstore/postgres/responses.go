package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"opine/internal/survey"
)

const responseColumns = `id, response_id, session_id, survey_id, interviewer_id, status, answers,
    start_time, end_time, total_time_spent, audio_recording,
    assigned_to, lease_expires_at, reviewed_by, reviewed_at, review_feedback,
    interview_mode, selected_ac, qc_batch, is_sample, last_skipped_at,
    created_at, updated_at`

func scanResponse(scanner interface{ Scan(dest ...any) error }) (*survey.Response, error) {
	var (
		resp           survey.Response
		statusStr      string
		answersRaw     []byte
		startTime      *time.Time
		endTime        *time.Time
		audioRecording *string
		assignedTo     *string
		reviewedBy     *string
		reviewFeedback *string
	)

	if err := scanner.Scan(
		&resp.ID,
		&resp.ResponseID,
		&resp.SessionID,
		&resp.SurveyID,
		&resp.InterviewerID,
		&statusStr,
		&answersRaw,
		&startTime,
		&endTime,
		&resp.TotalTimeSpent,
		&audioRecording,
		&assignedTo,
		&resp.LeaseExpiresAt,
		&reviewedBy,
		&resp.ReviewedAt,
		&reviewFeedback,
		&resp.InterviewMode,
		&resp.SelectedAC,
		&resp.QCBatch,
		&resp.IsSample,
		&resp.LastSkippedAt,
		&resp.CreatedAt,
		&resp.UpdatedAt,
	); err != nil {
		return nil, err
	}

	resp.Status = survey.Status(statusStr)
	if startTime != nil {
		resp.StartTime = startTime.UTC()
	}
	if endTime != nil {
		resp.EndTime = endTime.UTC()
	}
	for _, ts := range []**time.Time{&resp.LeaseExpiresAt, &resp.ReviewedAt, &resp.LastSkippedAt} {
		if *ts != nil {
			utc := (*ts).UTC()
			*ts = &utc
		}
	}
	resp.CreatedAt = resp.CreatedAt.UTC()
	resp.UpdatedAt = resp.UpdatedAt.UTC()
	if audioRecording != nil {
		resp.AudioRecording = *audioRecording
	}
	if assignedTo != nil {
		resp.AssignedTo = *assignedTo
	}
	if reviewedBy != nil {
		resp.ReviewedBy = *reviewedBy
	}
	if reviewFeedback != nil {
		resp.ReviewFeedback = *reviewFeedback
	}

	if len(answersRaw) > 0 {
		if err := json.Unmarshal(answersRaw, &resp.Answers); err != nil {
			resp.Answers = nil
			resp.AnswersInvalid = true
		}
	}
	return &resp, nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func nullableTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	v := value.UTC()
	return &v
}

// Insert persists a new response, minting identifiers and timestamps
// for fields left empty.
func (s *Store) Insert(ctx context.Context, resp *survey.Response) (*survey.Response, error) {
	if resp == nil {
		return nil, errors.New("insert: nil response")
	}
	stored := *resp
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.ResponseID == "" {
		stored.ResponseID = "R-" + strings.ToUpper(strings.ReplaceAll(stored.ID, "-", "")[:10])
	}
	if stored.Status == "" {
		stored.Status = survey.StatusInProgress
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	answers := []byte("[]")
	if stored.Answers != nil {
		encoded, err := json.Marshal(stored.Answers)
		if err != nil {
			return nil, fmt.Errorf("encode answers: %w", err)
		}
		answers = encoded
	}

	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO survey_responses (`+responseColumns+`)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		stored.ID,
		stored.ResponseID,
		stored.SessionID,
		stored.SurveyID,
		stored.InterviewerID,
		string(stored.Status),
		answers,
		nullableTime(stored.StartTime),
		nullableTime(stored.EndTime),
		stored.TotalTimeSpent,
		nullableString(stored.AudioRecording),
		nullableString(stored.AssignedTo),
		stored.LeaseExpiresAt,
		nullableString(stored.ReviewedBy),
		stored.ReviewedAt,
		nullableString(stored.ReviewFeedback),
		stored.InterviewMode,
		stored.SelectedAC,
		stored.QCBatch,
		stored.IsSample,
		stored.LastSkippedAt,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	return &stored, nil
}

// GetByID returns the response or nil when none exists.
func (s *Store) GetByID(ctx context.Context, id string) (*survey.Response, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+responseColumns+` FROM survey_responses WHERE id = $1`, id)
	resp, err := scanResponse(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return resp, nil
}

// ListPage returns responses in the given status matching the cohort
// filter, keyset-paged by id.
func (s *Store) ListPage(ctx context.Context, filter survey.CohortFilter, status survey.Status, afterID string, limit int) ([]*survey.Response, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT ` + responseColumns + ` FROM survey_responses WHERE status = $1`
	args := []any{string(status)}
	query, args = appendCohortClauses(query, args, filter)
	query += fmt.Sprintf(` AND id > $%d ORDER BY id LIMIT $%d`, len(args)+1, len(args)+2)
	args = append(args, afterID, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []*survey.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

func appendCohortClauses(query string, args []any, filter survey.CohortFilter) (string, []any) {
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(` AND %s = $%d`, column, len(args))
	}
	add("survey_id", filter.SurveyID)
	add("interviewer_id", filter.InterviewerID)
	add("qc_batch", filter.QCBatch)
	add("selected_ac", filter.SelectedAC)
	add("interview_mode", filter.InterviewMode)
	return query, args
}
