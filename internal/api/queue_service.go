package api

import (
	"context"
	"time"

	"opine/internal/respstore/sqlite"
	"opine/internal/survey"
)

// StatusReader abstracts the read-only store slice behind status and
// health queries.
type StatusReader interface {
	CountByStatus(ctx context.Context, surveyID string) (map[survey.Status]int, error)
	Health(ctx context.Context, now time.Time) (survey.HealthSummary, error)
}

// Diagnoser is implemented by backends that can inspect their own
// storage.
type Diagnoser interface {
	CheckHealth(ctx context.Context) (sqlite.DatabaseHealth, error)
}

// QueueService exposes read-only queue state as API DTOs.
type QueueService struct {
	store StatusReader
	now   func() time.Time
}

// NewQueueService constructs a QueueService around the provided
// reader.
func NewQueueService(store StatusReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store, now: time.Now}
}

// Stats returns response counts keyed by status string, optionally
// scoped to one survey.
func (s *QueueService) Stats(ctx context.Context, surveyID string) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	counts, err := s.store.CountByStatus(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	return MergeStatusCounts(counts), nil
}

// Health returns the lifecycle-state summary across the store.
func (s *QueueService) Health(ctx context.Context) (HealthReport, error) {
	if s == nil || s.store == nil {
		return HealthReport{}, nil
	}
	health, err := s.store.Health(ctx, s.now().UTC())
	if err != nil {
		return HealthReport{}, err
	}
	return FromHealthSummary(health), nil
}

// Diagnostics runs the backend's self-inspection when it offers one.
// Backends without one report nothing rather than an error.
func (s *QueueService) Diagnostics(ctx context.Context) (*DatabaseDiagnostics, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	diagnoser, ok := s.store.(Diagnoser)
	if !ok {
		return nil, nil
	}
	health, err := diagnoser.CheckHealth(ctx)
	if err != nil {
		return nil, err
	}
	dto := FromDatabaseHealth(health)
	return &dto, nil
}
