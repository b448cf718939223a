package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"opine/internal/survey"
)

// CountByStatus counts responses per status, optionally scoped to one
// survey.
func (s *Store) CountByStatus(ctx context.Context, surveyID string) (map[survey.Status]int, error) {
	query := `SELECT status, COUNT(1) FROM survey_responses`
	var args []any
	if surveyID != "" {
		query += ` WHERE survey_id = ?`
		args = append(args, surveyID)
	}
	query += ` GROUP BY status`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
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

	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM survey_responses WHERE assigned_to IS NOT NULL AND lease_expires_at >= ?`,
		formatTime(now),
	)
	if err := row.Scan(&health.Leased); err != nil {
		return survey.HealthSummary{}, fmt.Errorf("count leased: %w", err)
	}
	return health, nil
}

// DatabaseHealth carries diagnostic information about the SQLite file.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalResponses   int
	Error            string
}

// CheckHealth returns diagnostic information about the response database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("response database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat response database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("response database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("response database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping response database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'survey_responses'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		colsRows, err := s.db.QueryContext(connCtx, "PRAGMA table_info(survey_responses)")
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("table info: %w", err)
		}
		defer colsRows.Close()

		present := make(map[string]struct{})
		for colsRows.Next() {
			var (
				cid     int
				name    string
				typeStr string
				notNull int
				dflt    any
				pk      int
			)
			if err := colsRows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan table info: %w", err)
			}
			present[name] = struct{}{}
		}
		if err := colsRows.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate table info: %w", err)
		}

		expected := []string{
			"id",
			"response_id",
			"session_id",
			"survey_id",
			"interviewer_id",
			"status",
			"answers",
			"start_time",
			"end_time",
			"total_time_spent",
			"audio_recording",
			"assigned_to",
			"lease_expires_at",
			"reviewed_by",
			"reviewed_at",
			"review_feedback",
			"interview_mode",
			"selected_ac",
			"qc_batch",
			"is_sample",
			"last_skipped_at",
			"created_at",
			"updated_at",
		}
		for _, col := range expected {
			if _, ok := present[col]; !ok {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}

		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM survey_responses")
		if err := row.Scan(&health.TotalResponses); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count responses: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
