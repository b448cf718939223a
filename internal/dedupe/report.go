package dedupe

import "time"

// Counts summarizes what a scan covered and what it found.
type Counts struct {
	// Scanned is how many responses were loaded for comparison.
	Scanned int `json:"scanned"`
	// Buckets is how many (survey, interviewer) groups were visited.
	Buckets int `json:"buckets"`
	// Groups is how many duplicate groups were found.
	Groups int `json:"groups"`
	// Duplicates totals the non-original members across all groups.
	Duplicates int `json:"duplicates"`
	// Malformed counts responses skipped because their stored answers
	// could not be decoded.
	Malformed int `json:"malformed"`
	// Truncated counts buckets cut off at the comparison cap.
	Truncated int `json:"truncated"`
}

// Report summarizes one duplicate scan over a survey.
type Report struct {
	SurveyID   string    `json:"surveyId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Counts     Counts    `json:"counts"`
	Groups     []Group   `json:"groups,omitempty"`
	// TruncatedBuckets names the interviewers whose buckets exceeded the
	// comparison cap; results for those interviewers are incomplete.
	TruncatedBuckets []string `json:"truncatedBuckets,omitempty"`
	// Errors collects per-bucket failures that did not stop the run.
	Errors []string `json:"errors,omitempty"`
}

// Duration is how long the scan ran.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// DuplicateIDs flattens every group's duplicates into one id list, the
// input for purging and claim exclusion.
func (r *Report) DuplicateIDs() []string {
	ids := make([]string, 0, r.Counts.Duplicates)
	for _, g := range r.Groups {
		ids = append(ids, g.DuplicateIDs()...)
	}
	return ids
}

// Truncated reports whether any bucket was cut off at the comparison
// cap, meaning the scan may have missed duplicates.
func (r *Report) Truncated() bool {
	return r.Counts.Truncated > 0
}
