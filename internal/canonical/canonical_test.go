package canonical_test

import (
	"testing"

	"opine/internal/canonical"
	"opine/internal/survey"
)

func TestValueScalars(t *testing.T) {
	cases := []struct {
		name string
		a    any
		b    any
		same bool
	}{
		{"trimmed strings", "  yes  ", "yes", true},
		{"numeric collapse int float", float64(5), 5.0, true},
		{"numeric collapse precision", 5.0, 5.000, true},
		{"int and float64 agree", 5, float64(5), true},
		{"string five is not number five", "5", float64(5), false},
		{"bool is not string", true, "true", false},
		{"nil is not empty string", nil, "", false},
		{"distinct numbers", 5.0, 5.5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := canonical.Value(tc.a) == canonical.Value(tc.b)
			if got != tc.same {
				t.Fatalf("Value(%v) vs Value(%v): equal=%v, want %v (%q vs %q)",
					tc.a, tc.b, got, tc.same, canonical.Value(tc.a), canonical.Value(tc.b))
			}
		})
	}
}

func TestValueArraysOrderIndependent(t *testing.T) {
	a := canonical.Value([]any{"b", "a", "c"})
	b := canonical.Value([]any{"c", "a", "b"})
	if a != b {
		t.Fatalf("array order changed canonical form: %q vs %q", a, b)
	}

	c := canonical.Value([]any{"a", "a", "b"})
	if a == c {
		t.Fatal("different multisets must not collapse")
	}
}

func TestValueNestedObjects(t *testing.T) {
	a := canonical.Value(map[string]any{
		"city":  "Pune ",
		"codes": []any{float64(3), float64(1), float64(2)},
	})
	b := canonical.Value(map[string]any{
		"codes": []any{float64(2), float64(1), float64(3)},
		"city":  "Pune",
	})
	if a != b {
		t.Fatalf("nested object forms diverge: %q vs %q", a, b)
	}
}

func TestValueIdempotent(t *testing.T) {
	inputs := []any{
		"  padded  ",
		[]any{"z", "a", map[string]any{"k": float64(1)}},
		map[string]any{"a": nil, "b": true},
	}
	for _, input := range inputs {
		first := canonical.Value(input)
		second := canonical.Value(input)
		if first != second {
			t.Fatalf("canonicalization not stable for %v", input)
		}
	}
}

func TestAnswersOrderIndependent(t *testing.T) {
	first := []survey.Answer{
		{QuestionID: "q2", Value: []any{"b", "a"}},
		{QuestionID: "q1", Value: "yes"},
	}
	second := []survey.Answer{
		{QuestionID: "q1", Value: " yes "},
		{QuestionID: "q2", Value: []any{"a", "b"}},
	}
	if canonical.Answers(first) != canonical.Answers(second) {
		t.Fatalf("answer order changed canonical form:\n%s\n%s",
			canonical.Answers(first), canonical.Answers(second))
	}
	if canonical.Fingerprint(first) != canonical.Fingerprint(second) {
		t.Fatal("fingerprints diverge for equivalent answer sets")
	}
}

func TestAnswersDistinguishContent(t *testing.T) {
	base := []survey.Answer{{QuestionID: "q1", Value: "yes"}}
	changedValue := []survey.Answer{{QuestionID: "q1", Value: "no"}}
	changedQuestion := []survey.Answer{{QuestionID: "q2", Value: "yes"}}
	extra := []survey.Answer{
		{QuestionID: "q1", Value: "yes"},
		{QuestionID: "q2", Value: "no"},
	}

	fp := canonical.Fingerprint(base)
	for _, other := range [][]survey.Answer{changedValue, changedQuestion, extra} {
		if canonical.Fingerprint(other) == fp {
			t.Fatalf("distinct answer sets share a fingerprint: %#v", other)
		}
	}
}

func TestAnswersEmptySets(t *testing.T) {
	if canonical.Answers(nil) != canonical.Answers([]survey.Answer{}) {
		t.Fatal("nil and empty answer sets should agree")
	}
	if canonical.Fingerprint(nil) == "" {
		t.Fatal("empty set still fingerprints")
	}
}

func TestAnswerTypeTagIgnored(t *testing.T) {
	tagged := []survey.Answer{{QuestionID: "q1", Value: "yes", Type: "single_select"}}
	untagged := []survey.Answer{{QuestionID: "q1", Value: "yes"}}
	if canonical.Fingerprint(tagged) != canonical.Fingerprint(untagged) {
		t.Fatal("question type metadata must not affect the fingerprint")
	}
}
