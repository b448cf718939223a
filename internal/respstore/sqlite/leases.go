package sqlite

import (
	"context"
	"fmt"
	"time"

	"opine/internal/survey"
)

// ClaimCandidates returns the ordered selection pool for one claim pass.
// Recently skipped responses (after skipCutoff) sort behind the rest;
// within each band the oldest submissions come first so no response
// starves.
func (s *Store) ClaimCandidates(ctx context.Context, filter survey.ClaimFilter, now, skipCutoff time.Time, limit int) ([]*survey.Response, error) {
	if limit <= 0 {
		return nil, nil
	}
	args := []any{filter.SurveyID}
	query := `SELECT ` + responseColumns + ` FROM survey_responses WHERE survey_id = ?`
	query += ` AND status IN (` + eligiblePlaceholders(&args) + `)`
	if filter.InterviewMode != "" {
		query += ` AND interview_mode = ?`
		args = append(args, filter.InterviewMode)
	}
	if filter.SelectedAC != "" {
		query += ` AND selected_ac = ?`
		args = append(args, filter.SelectedAC)
	}
	if filter.QCBatch != "" {
		query += ` AND qc_batch = ?`
		args = append(args, filter.QCBatch)
	}
	query += ` AND (assigned_to IS NULL OR lease_expires_at < ?)
        ORDER BY CASE WHEN last_skipped_at IS NOT NULL AND last_skipped_at > ? THEN 1 ELSE 0 END,
                 created_at, id
        LIMIT ?`
	args = append(args, formatTime(now), formatTime(skipCutoff), limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
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

// Claim assigns the response to reviewerID until expiresAt. The update
// only lands while the response is review-eligible and carries no
// unexpired lease, so concurrent claimants resolve to exactly one
// winner per response.
func (s *Store) Claim(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error) {
	args := []any{reviewerID, formatTime(expiresAt), formatTime(now), id}
	query := `UPDATE survey_responses
        SET assigned_to = ?, lease_expires_at = ?, updated_at = ?
        WHERE id = ?
          AND status IN (` + eligiblePlaceholders(&args) + `)
          AND (assigned_to IS NULL OR lease_expires_at < ?)`
	args = append(args, formatTime(now))

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("claim response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Renew extends reviewerID's unexpired lease to expiresAt.
func (s *Store) Renew(ctx context.Context, id, reviewerID string, expiresAt, now time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE survey_responses
         SET lease_expires_at = ?, updated_at = ?
         WHERE id = ? AND assigned_to = ? AND lease_expires_at >= ?`,
		formatTime(expiresAt),
		formatTime(now),
		id,
		reviewerID,
		formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Release records the review outcome and clears the lease, provided
// reviewerID still holds it.
func (s *Store) Release(ctx context.Context, id, reviewerID string, outcome survey.Status, feedback string, now time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE survey_responses
         SET status = ?, assigned_to = NULL, lease_expires_at = NULL,
             reviewed_by = ?, reviewed_at = ?, review_feedback = ?, updated_at = ?
         WHERE id = ? AND assigned_to = ? AND lease_expires_at >= ?`,
		string(outcome),
		reviewerID,
		formatTime(now),
		nullableString(feedback),
		formatTime(now),
		id,
		reviewerID,
		formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Skip returns the response to the pool and stamps last_skipped_at so
// subsequent claims deprioritize it for the cooldown window.
func (s *Store) Skip(ctx context.Context, id, reviewerID string, now time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE survey_responses
         SET assigned_to = NULL, lease_expires_at = NULL, last_skipped_at = ?, updated_at = ?
         WHERE id = ? AND assigned_to = ? AND lease_expires_at >= ?`,
		formatTime(now),
		formatTime(now),
		id,
		reviewerID,
		formatTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("skip response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearExpiredLeases unassigns every response whose lease expired before
// now. Expiry is otherwise passive; this keeps assigned_to from reading
// stale in dashboards between claims.
func (s *Store) ClearExpiredLeases(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE survey_responses
         SET assigned_to = NULL, lease_expires_at = NULL, updated_at = ?
         WHERE assigned_to IS NOT NULL AND lease_expires_at < ?`,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired leases: %w", err)
	}
	return res.RowsAffected()
}
