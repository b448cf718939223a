package postgres

import (
	"context"
	"fmt"
	"time"

	"opine/internal/survey"
)

func eligibleArgs(args *[]any) string {
	statuses := survey.ReviewEligibleStatuses()
	start := len(*args) + 1
	for _, status := range statuses {
		*args = append(*args, string(status))
	}
	return placeholderRange(start, len(statuses))
}

// ClaimCandidates returns the ordered selection pool for one claim pass.
func (s *Store) ClaimCandidates(ctx context.Context, filter survey.ClaimFilter, now, skipCutoff time.Time, limit int) ([]*survey.Response, error) {
	if limit <= 0 {
		return nil, nil
	}
	args := []any{filter.SurveyID}
	query := `SELECT ` + responseColumns + ` FROM survey_responses WHERE survey_id = $1`
	query += ` AND status IN (` + eligibleArgs(&args) + `)`
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(` AND %s = $%d`, column, len(args))
	}
	add("interview_mode", filter.InterviewMode)
	add("selected_ac", filter.SelectedAC)
	add("qc_batch", filter.QCBatch)

	args = append(args, now.UTC())
	query += fmt.Sprintf(` AND (assigned_to IS NULL OR lease_expires_at < $%d)`, len(args))
	args = append(args, skipCutoff.UTC())
	query += fmt.Sprintf(`
        ORDER BY CASE WHEN last_skipped_at IS NOT NULL AND last_skipped_at > $%d THEN 1 ELSE 0 END,
                 created_at, id`, len(args))
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim candidates: %w", err)
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

// Claim assigns the response to reviewerID until expiresAt. Row-level
// atomicity guarantees a single winner under concurrent claims.
func (s *Store) Claim(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error) {
	args := []any{reviewerID, expiresAt.UTC(), now.UTC(), id}
	query := `UPDATE survey_responses
        SET assigned_to = $1, lease_expires_at = $2, updated_at = $3
        WHERE id = $4
          AND status IN (` + eligibleArgs(&args) + `)`
	args = append(args, now.UTC())
	query += fmt.Sprintf(` AND (assigned_to IS NULL OR lease_expires_at < $%d)`, len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("claim response: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Renew extends reviewerID's unexpired lease to expiresAt.
func (s *Store) Renew(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE survey_responses
         SET lease_expires_at = $1, updated_at = $2
         WHERE id = $3 AND assigned_to = $4 AND lease_expires_at >= $5`,
		expiresAt.UTC(), now.UTC(), id, reviewerID, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Release records the review outcome and clears the lease, provided
// reviewerID still holds it.
func (s *Store) Release(ctx context.Context, id, reviewerID string, outcome survey.Status, feedback string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE survey_responses
         SET status = $1, assigned_to = NULL, lease_expires_at = NULL,
             reviewed_by = $2, reviewed_at = $3, review_feedback = $4, updated_at = $5
         WHERE id = $6 AND assigned_to = $7 AND lease_expires_at >= $8`,
		string(outcome), reviewerID, now.UTC(), nullableString(feedback), now.UTC(), id, reviewerID, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Skip returns the response to the pool and stamps last_skipped_at.
func (s *Store) Skip(ctx context.Context, id, reviewerID string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE survey_responses
         SET assigned_to = NULL, lease_expires_at = NULL, last_skipped_at = $1, updated_at = $2
         WHERE id = $3 AND assigned_to = $4 AND lease_expires_at >= $5`,
		now.UTC(), now.UTC(), id, reviewerID, now.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("skip response: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ClearExpiredLeases unassigns every response whose lease expired before now.
func (s *Store) ClearExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE survey_responses
         SET assigned_to = NULL, lease_expires_at = NULL, updated_at = $1
         WHERE assigned_to IS NOT NULL AND lease_expires_at < $2`,
		now.UTC(), now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired leases: %w", err)
	}
	return tag.RowsAffected(), nil
}
