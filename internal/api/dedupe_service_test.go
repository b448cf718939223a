package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opine/internal/dedupe"
	"opine/internal/survey"
)

type fakeScanner struct {
	report *dedupe.Report
	err    error
	runs   int
}

func (f *fakeScanner) Run(_ context.Context, surveyID string) (*dedupe.Report, error) {
	f.runs++
	if f.err != nil {
		return nil, f.err
	}
	if f.report == nil {
		return &dedupe.Report{SurveyID: surveyID}, nil
	}
	return f.report, nil
}

type spyPublisher struct {
	surveyID string
	ids      []string
	calls    int
}

func (s *spyPublisher) Publish(surveyID string, duplicateIDs []string) {
	s.calls++
	s.surveyID = surveyID
	s.ids = duplicateIDs
}

func TestScanDuplicatesPublishesExclusions(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	scanner := &fakeScanner{report: &dedupe.Report{
		SurveyID: "SVY-1",
		Counts:   dedupe.Counts{Duplicates: 1, Groups: 1},
		Groups: []dedupe.Group{{
			SurveyID:      "SVY-1",
			InterviewerID: "int-1",
			Original:      &survey.Response{ID: "orig", StartTime: base},
			Duplicates:    []*survey.Response{{ID: "dup-1", StartTime: base.Add(time.Second)}},
		}},
	}}
	publisher := &spyPublisher{}
	svc := NewDedupeService(scanner, publisher)

	dto, err := svc.ScanDuplicates(context.Background(), "SVY-1")
	require.NoError(t, err)
	assert.Equal(t, "SVY-1", dto.Survey)
	assert.Equal(t, 1, publisher.calls)
	assert.Equal(t, "SVY-1", publisher.surveyID)
	assert.Equal(t, []string{"dup-1"}, publisher.ids, "originals never enter the exclusion set")
}

func TestScanDuplicatesRequiresSurvey(t *testing.T) {
	svc := NewDedupeService(&fakeScanner{}, nil)

	_, err := svc.ScanDuplicates(context.Background(), "  ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestScanDuplicatesSkipsPublishOnFailure(t *testing.T) {
	publisher := &spyPublisher{}
	svc := NewDedupeService(&fakeScanner{err: errors.New("store offline")}, publisher)

	_, err := svc.ScanDuplicates(context.Background(), "SVY-1")
	require.Error(t, err)
	assert.Zero(t, publisher.calls, "a failed scan must not overwrite the exclusion cache")
}

func TestScanDuplicatesWorksWithoutPublisher(t *testing.T) {
	svc := NewDedupeService(&fakeScanner{}, nil)

	dto, err := svc.ScanDuplicates(context.Background(), "SVY-1")
	require.NoError(t, err)
	assert.Equal(t, "SVY-1", dto.Survey)
}
