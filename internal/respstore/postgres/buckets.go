package postgres

import (
	"context"
	"fmt"
	"time"

	"opine/internal/survey"
)

// Buckets pages through (survey, interviewer) groups holding at least
// minSize review-eligible responses.
func (s *Store) Buckets(ctx context.Context, surveyID string, minSize int, afterInterviewer string, limit int) ([]survey.Bucket, error) {
	if limit <= 0 {
		return nil, nil
	}
	if minSize < 1 {
		minSize = 1
	}
	args := []any{surveyID}
	query := `SELECT interviewer_id, COUNT(1) FROM survey_responses
        WHERE survey_id = $1 AND status IN (` + eligibleArgs(&args) + `)`
	args = append(args, afterInterviewer)
	query += fmt.Sprintf(` AND interviewer_id > $%d GROUP BY interviewer_id`, len(args))
	args = append(args, minSize)
	query += fmt.Sprintf(` HAVING COUNT(1) >= $%d ORDER BY interviewer_id`, len(args))
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
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
// group, oldest first.
func (s *Store) BucketMembers(ctx context.Context, surveyID, interviewerID string, limit int) ([]*survey.Response, error) {
	if limit <= 0 {
		return nil, nil
	}
	args := []any{surveyID, interviewerID}
	query := `SELECT ` + responseColumns + ` FROM survey_responses
        WHERE survey_id = $1 AND interviewer_id = $2 AND status IN (` + eligibleArgs(&args) + `)`
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at, id LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
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
// another, skipping any that changed in the meantime.
func (s *Store) TransitionStatus(ctx context.Context, ids []string, from, to survey.Status, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{string(to), now.UTC()}
	start := len(args) + 1
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE survey_responses SET status = $1, updated_at = $2
        WHERE id IN (` + placeholderRange(start, len(ids)) + `)`
	args = append(args, string(from))
	query += fmt.Sprintf(` AND status = $%d`, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("transition status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteUnleased removes the listed responses except those under an
// unexpired review lease.
func (s *Store) DeleteUnleased(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var args []any
	for _, id := range ids {
		args = append(args, id)
	}
	query := `DELETE FROM survey_responses WHERE id IN (` + placeholderRange(1, len(ids)) + `)`
	args = append(args, now.UTC())
	query += fmt.Sprintf(` AND (assigned_to IS NULL OR lease_expires_at < $%d)`, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete responses: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountByStatus counts responses per status, optionally scoped to one survey.
func (s *Store) CountByStatus(ctx context.Context, surveyID string) (map[survey.Status]int, error) {
	query := `SELECT status, COUNT(1) FROM survey_responses`
	var args []any
	if surveyID != "" {
		query += ` WHERE survey_id = $1`
		args = append(args, surveyID)
	}
	query += ` GROUP BY status`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count responses: %w", err)
	}
	defer rows.Close()

	counts := make(map[survey.Status]int)
	for rows.Next() {
		var status survey.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// Health aggregates response state for diagnostic output.
func (s *Store) Health(ctx context.Context, now time.Time) (survey.HealthSummary, error) {
	counts, err := s.CountByStatus(ctx, "")
	if err != nil {
		return survey.HealthSummary{}, err
	}
	health := survey.HealthSummary{}
	for status, count := range counts {
		health.Total += count
		switch status {
		case survey.StatusInProgress:
			health.InProgress += count
		case survey.StatusSubmitted:
			health.Submitted += count
		case survey.StatusPendingApproval:
			health.AwaitingReview += count
		case survey.StatusApproved:
			health.Approved += count
		case survey.StatusRejected:
			health.Rejected += count
		case survey.StatusAbandoned:
			health.Abandoned += count
		}
	}

	row := s.pool.QueryRow(
		ctx,
		`SELECT COUNT(1) FROM survey_responses WHERE assigned_to IS NOT NULL AND lease_expires_at >= $1`,
		now.UTC(),
	)
	if err := row.Scan(&health.Leased); err != nil {
		return survey.HealthSummary{}, fmt.Errorf("count leased: %w", err)
	}
	return health, nil
}
