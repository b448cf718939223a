package api

import (
	"time"

	"opine/internal/dedupe"
	"opine/internal/respstore/sqlite"
	"opine/internal/survey"
)

// FromResponse converts a stored response to its API representation.
func FromResponse(resp *survey.Response) ResponseItem {
	if resp == nil {
		return ResponseItem{}
	}
	dto := ResponseItem{
		ID:             resp.ID,
		ResponseID:     resp.ResponseID,
		SessionID:      resp.SessionID,
		SurveyID:       resp.SurveyID,
		InterviewerID:  resp.InterviewerID,
		Status:         string(resp.Status),
		InterviewMode:  resp.InterviewMode,
		SelectedAC:     resp.SelectedAC,
		QCBatch:        resp.QCBatch,
		IsSample:       resp.IsSample,
		TotalTimeSpent: resp.TotalTimeSpent,
		AudioRecording: resp.AudioRecording,
		Answers:        resp.Answers,
		AnswersInvalid: resp.AnswersInvalid,
		AssignedTo:     resp.AssignedTo,
		ReviewedBy:     resp.ReviewedBy,
		ReviewFeedback: resp.ReviewFeedback,
		StartTime:      FormatTime(resp.StartTime),
		EndTime:        FormatTime(resp.EndTime),
		CreatedAt:      FormatTime(resp.CreatedAt),
		UpdatedAt:      FormatTime(resp.UpdatedAt),
	}
	if resp.LeaseExpiresAt != nil {
		dto.LeaseExpiresAt = FormatTime(*resp.LeaseExpiresAt)
	}
	if resp.ReviewedAt != nil {
		dto.ReviewedAt = FormatTime(*resp.ReviewedAt)
	}
	return dto
}

// FromResponses converts a slice of stored responses into API DTOs.
func FromResponses(responses []*survey.Response) []ResponseItem {
	if len(responses) == 0 {
		return nil
	}
	out := make([]ResponseItem, 0, len(responses))
	for _, resp := range responses {
		out = append(out, FromResponse(resp))
	}
	return out
}

// FromReport converts a duplicate scan into its API payload. Each
// duplicate carries its start-time offset from the group original so
// consumers can show how tightly the copies cluster.
func FromReport(report *dedupe.Report) ScanReport {
	if report == nil {
		return ScanReport{}
	}
	dto := ScanReport{
		Survey: report.SurveyID,
		Counts: ScanCounts{
			Scanned:    report.Counts.Scanned,
			Buckets:    report.Counts.Buckets,
			Groups:     report.Counts.Groups,
			Duplicates: report.Counts.Duplicates,
			Malformed:  report.Counts.Malformed,
			Truncated:  report.Counts.Truncated,
		},
		Errors:     report.Errors,
		StartedAt:  FormatTime(report.StartedAt),
		FinishedAt: FormatTime(report.FinishedAt),
	}
	if len(report.Groups) == 0 {
		return dto
	}
	dto.Groups = make([]DuplicateGroupItem, 0, len(report.Groups))
	for _, group := range report.Groups {
		item := DuplicateGroupItem{
			InterviewerID: group.InterviewerID,
			Duplicates:    make([]DuplicateItem, 0, len(group.Duplicates)),
		}
		var originalStart time.Time
		if group.Original != nil {
			item.Original = group.Original.ID
			originalStart = group.Original.StartTime
		}
		for _, dup := range group.Duplicates {
			if dup == nil {
				continue
			}
			item.Duplicates = append(item.Duplicates, DuplicateItem{
				ID:               dup.ID,
				TimeDifferenceMs: dup.StartTime.Sub(originalStart).Milliseconds(),
			})
		}
		dto.Groups = append(dto.Groups, item)
	}
	return dto
}

// FromHealthSummary converts store health counts to API payload.
func FromHealthSummary(health survey.HealthSummary) HealthReport {
	return HealthReport{
		Total:          health.Total,
		InProgress:     health.InProgress,
		Submitted:      health.Submitted,
		AwaitingReview: health.AwaitingReview,
		Approved:       health.Approved,
		Rejected:       health.Rejected,
		Abandoned:      health.Abandoned,
		Leased:         health.Leased,
	}
}

// MergeStatusCounts produces a string-keyed representation of response
// counts.
func MergeStatusCounts(counts map[survey.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, count := range counts {
		out[string(status)] = count
	}
	return out
}

// FromDatabaseHealth converts backend diagnostics to API payload.
func FromDatabaseHealth(health sqlite.DatabaseHealth) DatabaseDiagnostics {
	return DatabaseDiagnostics{
		Path:           health.DBPath,
		Exists:         health.DatabaseExists,
		Readable:       health.DatabaseReadable,
		TableExists:    health.TableExists,
		MissingColumns: health.MissingColumns,
		IntegrityOK:    health.IntegrityCheck,
		TotalResponses: health.TotalResponses,
		Error:          health.Error,
	}
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
