package api

import (
	"context"
	"strings"

	"opine/internal/dedupe"
)

// DuplicateScanner abstracts the duplicate scanner behind the
// duplicates API.
type DuplicateScanner interface {
	Run(ctx context.Context, surveyID string) (*dedupe.Report, error)
}

// ExclusionPublisher receives freshly computed duplicate id sets so
// claiming benefits from scans paid for elsewhere.
type ExclusionPublisher interface {
	Publish(surveyID string, duplicateIDs []string)
}

// DedupeService runs duplicate scans on demand.
type DedupeService struct {
	scanner   DuplicateScanner
	publisher ExclusionPublisher
}

// NewDedupeService constructs a DedupeService. publisher may be nil
// when no exclusion cache is wired.
func NewDedupeService(scanner DuplicateScanner, publisher ExclusionPublisher) *DedupeService {
	if scanner == nil {
		return nil
	}
	return &DedupeService{scanner: scanner, publisher: publisher}
}

// ScanDuplicates scans one survey and returns the rendered report.
// The scan is read-only and safe to repeat; its duplicate set also
// refreshes the claim-path exclusion cache.
func (s *DedupeService) ScanDuplicates(ctx context.Context, surveyID string) (ScanReport, error) {
	if s == nil || s.scanner == nil {
		return ScanReport{}, nil
	}
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return ScanReport{}, invalid("survey is required")
	}
	report, err := s.scanner.Run(ctx, surveyID)
	if err != nil {
		return ScanReport{}, err
	}
	if s.publisher != nil {
		s.publisher.Publish(surveyID, report.DuplicateIDs())
	}
	return FromReport(report), nil
}
