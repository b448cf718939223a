package dedupe

import (
	"testing"
	"time"

	"opine/internal/survey"
)

// bucketMember builds one response in the test bucket with its start
// time and creation time offset from a fixed base.
func bucketMember(id string, startOffset time.Duration, createdOffset time.Duration) *survey.Response {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	r := sampleResponse()
	r.ID = id
	r.StartTime = base.Add(startOffset)
	r.CreatedAt = base.Add(10*time.Minute + createdOffset)
	return r
}

func groupIDs(groups []Group) map[string]int {
	seen := map[string]int{}
	for gi, g := range groups {
		seen[g.Original.ID] = gi
		for _, d := range g.Duplicates {
			seen[d.ID] = gi
		}
	}
	return seen
}

func TestClusterEarliestSubmissionIsOriginal(t *testing.T) {
	a := bucketMember("resp-1", 0, 0)
	b := bucketMember("resp-2", 2*time.Second, 30*time.Second)
	c := bucketMember("resp-3", 4*time.Second, time.Minute)

	// Input order deliberately scrambled; creation order decides.
	groups := Cluster([]*survey.Response{c, a, b})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.Original.ID != "resp-1" {
		t.Fatalf("original = %s, want resp-1", g.Original.ID)
	}
	if g.Size() != 3 || len(g.Duplicates) != 2 {
		t.Fatalf("unexpected group shape: size %d, duplicates %d", g.Size(), len(g.Duplicates))
	}
	if g.SurveyID != "SVY-100" || g.InterviewerID != "INT-7" {
		t.Fatalf("group keys = %s/%s", g.SurveyID, g.InterviewerID)
	}
}

func TestClusterGroupsAreDisjoint(t *testing.T) {
	// B is within tolerance of both A and C, but A and C are 8 seconds
	// apart. A anchors first and claims B; C is left without a partner.
	a := bucketMember("resp-a", 0, 0)
	b := bucketMember("resp-b", 4*time.Second, time.Second)
	c := bucketMember("resp-c", 8*time.Second, 2*time.Second)

	groups := Cluster([]*survey.Response{a, b, c})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	membership := groupIDs(groups)
	if _, ok := membership["resp-c"]; ok {
		t.Fatal("resp-c matched only transitively and must stay ungrouped")
	}
	if membership["resp-a"] != membership["resp-b"] {
		t.Fatal("resp-a and resp-b should share a group")
	}
}

func TestClusterSeparatesDistinctContent(t *testing.T) {
	a1 := bucketMember("resp-a1", 0, 0)
	a2 := bucketMember("resp-a2", time.Second, time.Second)

	b1 := bucketMember("resp-b1", 0, 2*time.Second)
	b1.Answers = []survey.Answer{{QuestionID: "q1", Value: "no"}}
	b2 := bucketMember("resp-b2", time.Second, 3*time.Second)
	b2.Answers = []survey.Answer{{QuestionID: "q1", Value: "no"}}

	groups := Cluster([]*survey.Response{a1, b1, a2, b2})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	membership := groupIDs(groups)
	if membership["resp-a1"] == membership["resp-b1"] {
		t.Fatal("different answer content ended up in one group")
	}
	if membership["resp-a1"] != membership["resp-a2"] || membership["resp-b1"] != membership["resp-b2"] {
		t.Fatal("matching pairs were split across groups")
	}
}

func TestClusterIgnoresUndecodableMembers(t *testing.T) {
	a := bucketMember("resp-1", 0, 0)
	b := bucketMember("resp-2", time.Second, time.Second)
	broken := bucketMember("resp-3", time.Second, 2*time.Second)
	broken.AnswersInvalid = true
	broken.Answers = nil

	groups := Cluster([]*survey.Response{a, b, broken})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if _, ok := groupIDs(groups)["resp-3"]; ok {
		t.Fatal("undecodable member must not join a group")
	}
}

func TestClusterWithoutDuplicates(t *testing.T) {
	a := bucketMember("resp-1", 0, 0)
	b := bucketMember("resp-2", time.Second, time.Second)
	b.Answers = []survey.Answer{{QuestionID: "q9", Value: "different"}}

	if groups := Cluster([]*survey.Response{a, b}); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
	if groups := Cluster(nil); len(groups) != 0 {
		t.Fatalf("expected no groups for empty bucket, got %d", len(groups))
	}
}
