package survey

import (
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"in_progress", StatusInProgress, true},
		{"submitted", StatusSubmitted, true},
		{"Pending_Approval", StatusPendingApproval, true},
		{"pending_approval", StatusPendingApproval, true},
		{"PENDING_APPROVAL", StatusPendingApproval, true},
		{"Approved", StatusApproved, true},
		{"approved", StatusApproved, true},
		{"Rejected", StatusRejected, true},
		{"abandoned", StatusAbandoned, true},
		{"  Approved  ", StatusApproved, true},
		{"", "", false},
		{"unknown", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseStatusCanonicalizesCasing(t *testing.T) {
	got, ok := ParseStatus("pending_approval")
	if !ok {
		t.Fatal("expected pending_approval to parse")
	}
	if string(got) != "Pending_Approval" {
		t.Fatalf("expected canonical stored casing, got %q", got)
	}
}

func TestReviewEligibility(t *testing.T) {
	eligible := map[Status]bool{
		StatusInProgress:      false,
		StatusSubmitted:       false,
		StatusPendingApproval: true,
		StatusApproved:        true,
		StatusRejected:        true,
		StatusAbandoned:       false,
	}
	for status, want := range eligible {
		if got := IsReviewEligible(status); got != want {
			t.Errorf("IsReviewEligible(%q) = %v, want %v", status, got, want)
		}
	}
	if len(ReviewEligibleStatuses()) != 3 {
		t.Fatalf("expected 3 review-eligible statuses, got %d", len(ReviewEligibleStatuses()))
	}
}

func TestLeaseHelpers(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	resp := &Response{AssignedTo: "rev-1", LeaseExpiresAt: &future}
	if !resp.Leased(now) {
		t.Fatal("expected unexpired lease to count as leased")
	}
	if !resp.LeasedBy("rev-1", now) {
		t.Fatal("expected holder to match")
	}
	if resp.LeasedBy("rev-2", now) {
		t.Fatal("expected other reviewer not to hold the lease")
	}

	resp.LeaseExpiresAt = &past
	if resp.Leased(now) {
		t.Fatal("expired lease must read as unleased")
	}
	if resp.LeasedBy("rev-1", now) {
		t.Fatal("expired lease must not be held by anyone")
	}

	if (&Response{}).Leased(now) {
		t.Fatal("empty response must not read as leased")
	}
}

func TestCohortFilterEmpty(t *testing.T) {
	if !(CohortFilter{}).Empty() {
		t.Fatal("zero filter should be empty")
	}
	if (CohortFilter{SurveyID: "s1"}).Empty() {
		t.Fatal("filter with survey should not be empty")
	}
	if (CohortFilter{InterviewMode: ModeCATI}).Empty() {
		t.Fatal("filter with mode should not be empty")
	}
}
