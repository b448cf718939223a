package dedupe

import (
	"sort"

	"opine/internal/survey"
)

// Group is one set of responses judged to be the same interview. The
// original is the earliest submission; everything after it is a copy.
type Group struct {
	SurveyID      string
	InterviewerID string
	Original      *survey.Response
	Duplicates    []*survey.Response
}

// Size counts the original plus its duplicates.
func (g Group) Size() int {
	return 1 + len(g.Duplicates)
}

// DuplicateIDs lists the ids of the non-original members, the set a
// purge or exclusion consumer acts on.
func (g Group) DuplicateIDs() []string {
	ids := make([]string, len(g.Duplicates))
	for i, d := range g.Duplicates {
		ids[i] = d.ID
	}
	return ids
}

// Cluster partitions one bucket's members into duplicate groups. It
// walks members oldest first; each response not yet claimed by an
// earlier group anchors a new one and pulls in every later unclaimed
// response it matches. A response therefore lands in at most one group,
// and the anchor, being the earliest member, is the group's original.
//
// Members with undecodable answers are left out entirely. Groups with
// no duplicates are not reported.
func Cluster(members []*survey.Response) []Group {
	cands := make([]candidate, 0, len(members))
	for _, m := range members {
		if m == nil || m.AnswersInvalid {
			continue
		}
		cands = append(cands, newCandidate(m))
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].resp, cands[j].resp
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	claimed := make([]bool, len(cands))
	var groups []Group
	for i := range cands {
		if claimed[i] {
			continue
		}
		anchor := cands[i]
		var dups []*survey.Response
		for j := i + 1; j < len(cands); j++ {
			if claimed[j] {
				continue
			}
			if anchor.matches(cands[j]) {
				claimed[j] = true
				dups = append(dups, cands[j].resp)
			}
		}
		if len(dups) == 0 {
			continue
		}
		groups = append(groups, Group{
			SurveyID:      anchor.resp.SurveyID,
			InterviewerID: anchor.resp.InterviewerID,
			Original:      anchor.resp,
			Duplicates:    dups,
		})
	}
	return groups
}
