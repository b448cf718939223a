package dedupe

import (
	"net/url"
	"strings"
	"time"

	"opine/internal/canonical"
	"opine/internal/survey"
)

// Matching tolerances. Duplicate submissions come from retries and
// double-taps on flaky connections, so the copies sit within seconds of
// each other; anything further apart is a legitimate re-interview.
const (
	// startTimeTolerance is the widest gap between two start timestamps
	// that still counts as the same sitting.
	startTimeTolerance = 5000 * time.Millisecond
	// durationToleranceSeconds is the widest difference in reported
	// interview duration that still counts as the same sitting.
	durationToleranceSeconds = 5
)

// candidate is a response with its comparison keys computed once, so
// clustering a bucket does not rehash answers for every pair.
type candidate struct {
	resp        *survey.Response
	fingerprint string
	audio       string
}

func newCandidate(resp *survey.Response) candidate {
	return candidate{
		resp:        resp,
		fingerprint: canonical.Fingerprint(resp.Answers),
		audio:       audioName(resp.AudioRecording),
	}
}

func (c candidate) matches(other candidate) bool {
	a, b := c.resp, other.resp
	if a.SurveyID != b.SurveyID || a.InterviewerID != b.InterviewerID {
		return false
	}
	if absDuration(a.StartTime.Sub(b.StartTime)) > startTimeTolerance {
		return false
	}
	if absInt(a.TotalTimeSpent-b.TotalTimeSpent) > durationToleranceSeconds {
		return false
	}
	if c.fingerprint != other.fingerprint {
		return false
	}
	return c.audio == other.audio
}

// Match reports whether two responses look like the same interview
// submitted twice: same interviewer on the same survey, start times
// within 5 seconds, reported durations within 5 seconds, identical
// answer content, and the same recording filename. Responses whose
// stored answers could not be decoded never match anything; their
// content is unknowable, and hashing the absence of answers would glue
// every broken record into one group.
func Match(a, b *survey.Response) bool {
	if a == nil || b == nil || a.AnswersInvalid || b.AnswersInvalid {
		return false
	}
	return newCandidate(a).matches(newCandidate(b))
}

// audioName reduces a recording reference to its terminal filename.
// Upload retries land the same file under freshly signed URLs, so the
// host, directory prefix, and query string all vary while the filename
// stays stable.
func audioName(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = u.Path
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndexAny(s, "/\\"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
