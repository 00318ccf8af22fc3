package score

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mediquest/medscan/pkg/report"
	"github.com/mediquest/medscan/pkg/types"
)

type fakeScorer struct {
	score *types.HealthScore
	err   error
}

func (f *fakeScorer) ScoreHealth(ctx context.Context, req types.ScoreRequest) (*types.HealthScore, error) {
	return f.score, f.err
}

func TestAssessPassesThroughBackendScore(t *testing.T) {
	want := &types.HealthScore{HealthScore: 88, Summary: "good", Urgency: types.UrgencyLow}
	stage := New(&fakeScorer{score: want})

	got := stage.Assess(context.Background(), types.ScoreRequest{})
	if got != want {
		t.Errorf("expected backend score passed through, got %+v", got)
	}
}

func TestAssessFallsBackOnError(t *testing.T) {
	stage := New(&fakeScorer{err: errors.New("quota exceeded")})

	got := stage.Assess(context.Background(), types.ScoreRequest{})
	if got.HealthScore != 0 {
		t.Errorf("expected zero fallback score, got %d", got.HealthScore)
	}
	if got.Summary != report.FallbackScoreSummary {
		t.Errorf("expected fallback summary, got %q", got.Summary)
	}
}

func TestAssessFallsBackOnNilBackend(t *testing.T) {
	stage := New(nil)

	got := stage.Assess(context.Background(), types.ScoreRequest{})
	if got.HealthScore != 0 {
		t.Errorf("expected fallback for nil backend, got %d", got.HealthScore)
	}
}

func TestAssessFallsBackOnNilScore(t *testing.T) {
	stage := New(&fakeScorer{})

	got := stage.Assess(context.Background(), types.ScoreRequest{})
	if got == nil || got.HealthScore != 0 {
		t.Errorf("expected fallback for nil result, got %+v", got)
	}
}

func TestHistoryFromRecords(t *testing.T) {
	records := []*types.PipelineRecord{
		{
			Name: "chest.png",
			Report: &types.AnalysisReport{
				Summary: "clear",
				Findings: []types.Finding{
					{Label: "Opacity", Confidence: "High"},
					{Label: "Lab value", Confidence: "medium"},
				},
			},
		},
		{Name: "no-report.png"},
		{
			Name:   "knee.jpg",
			Report: &types.AnalysisReport{Summary: "no findings", Findings: []types.Finding{}},
		},
		nil,
	}

	history := HistoryFromRecords(records)
	if len(history) != 3 {
		t.Fatalf("expected 3 history lines, got %d: %v", len(history), history)
	}
	if !strings.Contains(history[0], "Opacity") || !strings.Contains(history[0], "high") {
		t.Errorf("unexpected first line %q", history[0])
	}
	if !strings.Contains(history[2], "no findings") {
		t.Errorf("summary line expected for finding-free report, got %q", history[2])
	}
}

func TestHistoryFromRecordsEmpty(t *testing.T) {
	if got := HistoryFromRecords(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil history, got %#v", got)
	}
}
