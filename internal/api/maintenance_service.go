package api

import (
	"context"
	"log/slog"
	"time"

	"opine/internal/config"
	"opine/internal/logging"
	"opine/internal/scan"
	"opine/internal/survey"
)

// MaintenanceStore abstracts the bulk-operation slice of the response
// store.
type MaintenanceStore interface {
	ListPage(ctx context.Context, filter survey.CohortFilter, status survey.Status, afterID string, limit int) ([]*survey.Response, error)
	TransitionStatus(ctx context.Context, ids []string, from, to survey.Status, now time.Time) (int64, error)
	DeleteUnleased(ctx context.Context, ids []string, now time.Time) (int64, error)
}

// Invalidator drops cached duplicate exclusions once the rows behind
// them change.
type Invalidator interface {
	Invalidate(surveyID string)
}

// Sweeper clears expired review leases.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// MaintenanceService runs the batched bulk operations: cohort
// restores, duplicate purges, and lease sweeps.
type MaintenanceService struct {
	store       MaintenanceStore
	sweeper     Sweeper
	invalidator Invalidator
	cfg         *config.Config
	logger      *slog.Logger
	now         func() time.Time
}

// NewMaintenanceService constructs a MaintenanceService. sweeper and
// invalidator may be nil when those concerns are not wired.
func NewMaintenanceService(store MaintenanceStore, sweeper Sweeper, invalidator Invalidator, cfg *config.Config, logger *slog.Logger) *MaintenanceService {
	if store == nil {
		return nil
	}
	return &MaintenanceService{
		store:       store,
		sweeper:     sweeper,
		invalidator: invalidator,
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "maintenance"),
		now:         time.Now,
	}
}

// RestoreCohort moves every response of the cohort from one status to
// another in capped batches. The transition is conditional on the
// row's current status, so rows that changed underneath the walk are
// counted as matched but not updated, and re-running a finished
// restore is a no-op. A mid-walk failure returns the tallies
// accumulated so far alongside the error.
func (s *MaintenanceService) RestoreCohort(ctx context.Context, req RestoreRequest) (RestoreResult, error) {
	if s == nil || s.store == nil {
		return RestoreResult{}, nil
	}
	from, ok := survey.ParseStatus(req.FromStatus)
	if !ok {
		return RestoreResult{}, invalid("unknown fromStatus %q", req.FromStatus)
	}
	to, ok := survey.ParseStatus(req.ToStatus)
	if !ok {
		return RestoreResult{}, invalid("unknown toStatus %q", req.ToStatus)
	}
	if from == to {
		return RestoreResult{}, invalid("fromStatus and toStatus are both %q", from)
	}
	filter := survey.CohortFilter{
		SurveyID:      req.SurveyID,
		InterviewerID: req.InterviewerID,
		QCBatch:       req.QCBatch,
		SelectedAC:    req.SelectedAC,
		InterviewMode: req.InterviewMode,
	}
	if filter.Empty() {
		return RestoreResult{}, invalid("at least one cohort field is required")
	}

	page := func(ctx context.Context, cursor string, limit int) ([]*survey.Response, string, error) {
		items, err := s.store.ListPage(ctx, filter, from, cursor, limit)
		if err != nil {
			return nil, "", err
		}
		next := ""
		if len(items) == limit {
			next = items[len(items)-1].ID
		}
		return items, next, nil
	}
	visit := func(ctx context.Context, items []*survey.Response) (scan.Delta, error) {
		ids := make([]string, len(items))
		for i, item := range items {
			ids[i] = item.ID
		}
		updated, err := s.store.TransitionStatus(ctx, ids, from, to, s.now().UTC())
		if err != nil {
			return scan.Delta{}, err
		}
		return scan.Delta{Matched: int(updated), Skipped: len(items) - int(updated)}, nil
	}

	totals, err := scan.ForEachBatch(ctx, scan.Options{PageSize: s.cfg.Scan.PageSize}, page, visit)
	result := RestoreResult{Matched: int64(totals.Processed), Updated: int64(totals.Matched)}
	if err != nil {
		s.logger.Error("cohort restore aborted",
			logging.String("from", string(from)),
			logging.String("to", string(to)),
			logging.Int64("matched", result.Matched),
			logging.Int64("updated", result.Updated),
			logging.Error(err))
		return result, err
	}
	s.logger.Info("cohort restored",
		logging.String("from", string(from)),
		logging.String("to", string(to)),
		logging.String("survey_id", filter.SurveyID),
		logging.Int64("matched", result.Matched),
		logging.Int64("updated", result.Updated))
	return result, nil
}

// PurgeDuplicates deletes the listed responses in capped chunks,
// leaving any under an unexpired review lease in place. Callers feed
// it the duplicate ids of a scan report, which never include group
// originals. Deleting ids that are already gone is a no-op, so a purge
// interrupted mid-way can simply run again.
func (s *MaintenanceService) PurgeDuplicates(ctx context.Context, surveyID string, ids []string) (PurgeResult, error) {
	if s == nil || s.store == nil {
		return PurgeResult{}, nil
	}
	result := PurgeResult{Requested: len(ids)}
	if len(ids) == 0 {
		return result, nil
	}

	chunkSize := s.cfg.Scan.PageSize
	if chunkSize <= 0 {
		chunkSize = 500
	}
	for start := 0; start < len(ids); start += chunkSize {
		end := min(start+chunkSize, len(ids))
		deleted, err := s.store.DeleteUnleased(ctx, ids[start:end], s.now().UTC())
		result.Deleted += deleted
		if err != nil {
			result.Retained = int64(result.Requested) - result.Deleted
			s.logger.Error("duplicate purge aborted",
				logging.String("survey_id", surveyID),
				logging.Int64("deleted", result.Deleted),
				logging.Error(err))
			return result, err
		}
	}
	result.Retained = int64(result.Requested) - result.Deleted

	if result.Deleted > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(surveyID)
	}
	s.logger.Info("duplicates purged",
		logging.String("survey_id", surveyID),
		logging.Int("requested", result.Requested),
		logging.Int64("deleted", result.Deleted),
		logging.Int64("retained", result.Retained))
	return result, nil
}

// SweepExpired clears lapsed review leases and reports how many.
func (s *MaintenanceService) SweepExpired(ctx context.Context) (int64, error) {
	if s == nil || s.sweeper == nil {
		return 0, nil
	}
	return s.sweeper.SweepExpired(ctx)
}
