package sqlite

import (
	"context"
	"fmt"
	"time"

	"opine/internal/survey"
)

// Buckets pages through (survey, interviewer) groups holding at least
// minSize review-eligible responses, ordered by interviewer id so a
// scan can resume after the last group it saw.
func (s *Store) Buckets(ctx context.Context, surveyID string, minSize int, afterInterviewer string, limit int) ([]survey.Bucket, error) {
	if limit <= 0 {
		return nil, nil
	}
	if minSize < 1 {
		minSize = 1
	}
	args := []any{surveyID}
	query := `SELECT interviewer_id, COUNT(1) FROM survey_responses
        WHERE survey_id = ? AND status IN (` + eligiblePlaceholders(&args) + `) AND interviewer_id > ?
        GROUP BY interviewer_id
        HAVING COUNT(1) >= ?
        ORDER BY interviewer_id
        LIMIT ?`
	args = append(args, afterInterviewer, minSize, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []survey.Bucket
	for rows.Next() {
		bucket := survey.Bucket{SurveyID: surveyID}
		if err := rows.Scan(&bucket.InterviewerID, &bucket.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

// BucketMembers returns up to limit review-eligible responses of one
// group, oldest first. Groups larger than limit are truncated; callers
// surface that through the member count on the bucket.
func (s *Store) BucketMembers(ctx context.Context, surveyID, interviewerID string, limit int) ([]*survey.Response, error) {
	if limit <= 0 {
		return nil, nil
	}
	args := []any{surveyID, interviewerID}
	query := `SELECT ` + responseColumns + ` FROM survey_responses
        WHERE survey_id = ? AND interviewer_id = ? AND status IN (` + eligiblePlaceholders(&args) + `)
        ORDER BY created_at, id
        LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("bucket members: %w", err)
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

// TransitionStatus moves the listed responses from one status to
// another. Responses whose status changed since the caller read them
// are left untouched, which makes bulk restores idempotent.
func (s *Store) TransitionStatus(ctx context.Context, ids []string, from, to survey.Status, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+3)
	args = append(args, string(to), formatTime(now))
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, string(from))
	query := `UPDATE survey_responses
        SET status = ?, updated_at = ?
        WHERE id IN (` + makePlaceholders(len(ids)) + `) AND status = ?`

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("transition status: %w", err)
	}
	return res.RowsAffected()
}

// DeleteUnleased removes the listed responses except those under an
// unexpired review lease; purging work out from under an active
// reviewer is never allowed.
func (s *Store) DeleteUnleased(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, formatTime(now))
	query := `DELETE FROM survey_responses
        WHERE id IN (` + makePlaceholders(len(ids)) + `)
          AND (assigned_to IS NULL OR lease_expires_at < ?)`

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	return res.RowsAffected()
}
