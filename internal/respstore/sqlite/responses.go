package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"opine/internal/survey"
)

// Insert persists a new response. Identifiers and timestamps left empty
// are minted here so callers can hand over partially filled records.
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

	answers := "[]"
	if stored.Answers != nil {
		encoded, err := json.Marshal(stored.Answers)
		if err != nil {
			return nil, fmt.Errorf("encode answers: %w", err)
		}
		answers = string(encoded)
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO survey_responses (`+responseColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID,
		stored.ResponseID,
		stored.SessionID,
		stored.SurveyID,
		stored.InterviewerID,
		string(stored.Status),
		answers,
		optionalTime(stored.StartTime),
		optionalTime(stored.EndTime),
		stored.TotalTimeSpent,
		nullableString(stored.AudioRecording),
		nullableString(stored.AssignedTo),
		nullableTime(stored.LeaseExpiresAt),
		nullableString(stored.ReviewedBy),
		nullableTime(stored.ReviewedAt),
		nullableString(stored.ReviewFeedback),
		stored.InterviewMode,
		stored.SelectedAC,
		stored.QCBatch,
		boolToInt(stored.IsSample),
		nullableTime(stored.LastSkippedAt),
		formatTime(stored.CreatedAt),
		formatTime(stored.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	return &stored, nil
}

// GetByID returns the response or nil when none exists.
func (s *Store) GetByID(ctx context.Context, id string) (*survey.Response, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+responseColumns+` FROM survey_responses WHERE id = ?`,
		id,
	)
	resp, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	query := `SELECT ` + responseColumns + ` FROM survey_responses WHERE status = ?`
	args := []any{string(status)}
	query, args = appendCohortClauses(query, args, filter)
	query += ` AND id > ? ORDER BY id LIMIT ?`
	args = append(args, afterID, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
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
	if filter.SurveyID != "" {
		query += ` AND survey_id = ?`
		args = append(args, filter.SurveyID)
	}
	if filter.InterviewerID != "" {
		query += ` AND interviewer_id = ?`
		args = append(args, filter.InterviewerID)
	}
	if filter.QCBatch != "" {
		query += ` AND qc_batch = ?`
		args = append(args, filter.QCBatch)
	}
	if filter.SelectedAC != "" {
		query += ` AND selected_ac = ?`
		args = append(args, filter.SelectedAC)
	}
	if filter.InterviewMode != "" {
		query += ` AND interview_mode = ?`
		args = append(args, filter.InterviewMode)
	}
	return query, args
}
