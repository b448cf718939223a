package dupecache

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"opine/internal/dedupe"
	"opine/internal/logging"
)

// Scanner is the slice of the duplicate scanner the provider needs.
type Scanner interface {
	Run(ctx context.Context, surveyID string) (*dedupe.Report, error)
}

// Provider serves the duplicate-id exclusion set consulted while
// claiming review work. The set is advisory: when it cannot be produced
// the provider hands back nothing and claiming proceeds unfiltered,
// because stalling reviewers over a cache is worse than occasionally
// assigning a duplicate.
type Provider struct {
	cache   *Cache
	scanner Scanner
	logger  *slog.Logger
	group   singleflight.Group
}

// NewProvider wires a provider over cache. scanner may be nil, in which
// case only published sets are served.
func NewProvider(cache *Cache, scanner Scanner, logger *slog.Logger) *Provider {
	return &Provider{
		cache:   cache,
		scanner: scanner,
		logger:  logging.NewComponentLogger(logger, "dupecache"),
	}
}

// Excluded returns the ids of known duplicates within the survey. A
// cold cache triggers at most one scan per survey at a time; concurrent
// callers share its result. Scan failures are logged and surface as an
// empty set.
func (p *Provider) Excluded(ctx context.Context, surveyID string) map[string]struct{} {
	if p == nil || surveyID == "" {
		return nil
	}
	if v, ok := p.cache.Get(KindDuplicates, surveyID); ok {
		set, _ := v.(map[string]struct{})
		return set
	}
	if p.scanner == nil {
		return nil
	}

	v, err, _ := p.group.Do(surveyID, func() (any, error) {
		report, err := p.scanner.Run(ctx, surveyID)
		if err != nil {
			return nil, err
		}
		set := idSet(report.DuplicateIDs())
		p.cache.Set(KindDuplicates, surveyID, set)
		return set, nil
	})
	if err != nil {
		logging.WarnWithContext(p.logger, "duplicate exclusion unavailable", "dedupe_exclusion_unavailable",
			logging.String(logging.FieldSurveyID, surveyID),
			logging.String(logging.FieldImpact, "claims proceed unfiltered"),
			logging.Error(err))
		return nil
	}
	return v.(map[string]struct{})
}

// Publish replaces the cached exclusion set for a survey, typically
// after an explicit scan already paid for the answer.
func (p *Provider) Publish(surveyID string, duplicateIDs []string) {
	if p == nil || surveyID == "" {
		return
	}
	p.cache.Set(KindDuplicates, surveyID, idSet(duplicateIDs))
}

// Invalidate drops the cached set for a survey. Called after purges and
// restores, which change which responses count as duplicates.
func (p *Provider) Invalidate(surveyID string) {
	if p == nil || surveyID == "" {
		return
	}
	p.cache.Invalidate(KindDuplicates, surveyID)
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
