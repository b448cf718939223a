// Package dedupe finds duplicate survey submissions. Retried uploads
// and double-taps land the same interview in the store more than once;
// this package groups those copies so the earliest submission can be
// kept and the rest purged or excluded from review.
//
// Comparison only ever happens inside a bucket, the set of responses
// one interviewer produced for one survey. Different interviewers can
// legitimately record near-identical interviews, so responses are never
// compared across bucket boundaries.
package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"opine/internal/config"
	"opine/internal/logging"
	"opine/internal/scan"
	"opine/internal/survey"
)

// Store is the slice of the response store a scan needs.
type Store interface {
	Buckets(ctx context.Context, surveyID string, minSize int, afterInterviewer string, limit int) ([]survey.Bucket, error)
	BucketMembers(ctx context.Context, surveyID, interviewerID string, limit int) ([]*survey.Response, error)
}

// Scanner walks a survey's buckets and clusters each one.
type Scanner struct {
	store   Store
	cfg     *config.Config
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewScanner creates a duplicate scanner backed by store. Page size,
// worker count, and pacing come from the scan section of cfg; a zero
// rate disables pacing.
func NewScanner(store Store, cfg *config.Config, logger *slog.Logger) *Scanner {
	var limiter *rate.Limiter
	if cfg.Scan.RatePerSecond > 0 {
		burst := cfg.Scan.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Scan.RatePerSecond), burst)
	}
	return &Scanner{
		store:   store,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "dedupe"),
		limiter: limiter,
	}
}

type bucketResult struct {
	bucket    survey.Bucket
	members   int
	malformed int
	truncated bool
	groups    []Group
	err       error
}

// Run clusters every qualifying bucket of one survey and reports the
// duplicate groups found. Buckets within a page are compared by a
// bounded worker pool; a bucket that fails to load is recorded in the
// report's Errors and the run keeps going. Only a failed bucket page
// aborts the run, and even then the report built so far is returned
// alongside the error.
func (s *Scanner) Run(ctx context.Context, surveyID string) (*Report, error) {
	report := &Report{SurveyID: surveyID, StartedAt: time.Now().UTC()}
	s.logger.Info("duplicate scan started",
		logging.String("survey_id", surveyID),
		logging.Int("bucket_min", s.cfg.Dedup.BucketMinSize),
		logging.Int("bucket_cap", s.cfg.Dedup.BucketMaxSize),
		logging.Int("workers", s.cfg.Scan.Workers))

	page := func(ctx context.Context, cursor string, limit int) ([]survey.Bucket, string, error) {
		buckets, err := s.store.Buckets(ctx, surveyID, s.cfg.Dedup.BucketMinSize, cursor, limit)
		if err != nil {
			return nil, "", err
		}
		next := ""
		if len(buckets) == limit {
			next = buckets[len(buckets)-1].InterviewerID
		}
		return buckets, next, nil
	}

	visit := func(ctx context.Context, buckets []survey.Bucket) (scan.Delta, error) {
		results := make([]bucketResult, len(buckets))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.Scan.Workers)
		for i, bucket := range buckets {
			g.Go(func() error {
				results[i] = s.scanBucket(gctx, bucket)
				return nil
			})
		}
		// Workers report failures through their result slot.
		_ = g.Wait()

		var delta scan.Delta
		for _, res := range results {
			delta = s.merge(report, res, delta)
		}
		return delta, nil
	}

	_, err := scan.ForEachBatch(ctx, scan.Options{PageSize: s.cfg.Scan.PageSize, Limiter: s.limiter}, page, visit)
	report.FinishedAt = time.Now().UTC()
	if err != nil {
		s.logger.Error("duplicate scan aborted",
			logging.String("survey_id", surveyID),
			logging.Int("buckets_scanned", report.Counts.Buckets),
			logging.Error(err))
		return report, err
	}

	s.logger.Info("duplicate scan finished",
		logging.String("survey_id", surveyID),
		logging.Int("buckets_scanned", report.Counts.Buckets),
		logging.Int("groups", report.Counts.Groups),
		logging.Int("duplicates", report.Counts.Duplicates),
		logging.Int("malformed", report.Counts.Malformed),
		logging.Int("buckets_truncated", report.Counts.Truncated),
		logging.Int("bucket_errors", len(report.Errors)),
		logging.Duration("elapsed", report.Duration()))
	return report, nil
}

// scanBucket loads and clusters one bucket. Errors are carried in the
// result rather than returned so sibling buckets keep scanning.
func (s *Scanner) scanBucket(ctx context.Context, bucket survey.Bucket) bucketResult {
	res := bucketResult{bucket: bucket}
	maxSize := s.cfg.Dedup.BucketMaxSize
	members, err := s.store.BucketMembers(ctx, bucket.SurveyID, bucket.InterviewerID, maxSize)
	if err != nil {
		res.err = fmt.Errorf("bucket %s/%s: %w", bucket.SurveyID, bucket.InterviewerID, err)
		return res
	}
	res.members = len(members)
	res.truncated = bucket.Count > maxSize
	for _, m := range members {
		if m.AnswersInvalid {
			res.malformed++
		}
	}
	res.groups = Cluster(members)
	return res
}

func (s *Scanner) merge(report *Report, res bucketResult, delta scan.Delta) scan.Delta {
	report.Counts.Buckets++
	if res.err != nil {
		report.Errors = append(report.Errors, res.err.Error())
		delta.Skipped += res.bucket.Count
		s.logger.Warn("bucket scan failed, continuing",
			logging.String("survey_id", res.bucket.SurveyID),
			logging.String("interviewer_id", res.bucket.InterviewerID),
			logging.Error(res.err))
		return delta
	}

	report.Counts.Scanned += res.members
	report.Counts.Malformed += res.malformed
	delta.Skipped += res.malformed
	if res.truncated {
		report.TruncatedBuckets = append(report.TruncatedBuckets, res.bucket.InterviewerID)
		report.Counts.Truncated++
		s.logger.Warn("bucket exceeds comparison cap, truncating",
			logging.Alert("review"),
			logging.String("survey_id", res.bucket.SurveyID),
			logging.String("interviewer_id", res.bucket.InterviewerID),
			logging.Int("count", res.bucket.Count),
			logging.Int("cap", s.cfg.Dedup.BucketMaxSize))
	}
	for _, g := range res.groups {
		delta.Matched += len(g.Duplicates)
		report.Counts.Duplicates += len(g.Duplicates)
	}
	report.Counts.Groups += len(res.groups)
	report.Groups = append(report.Groups, res.groups...)
	return delta
}
