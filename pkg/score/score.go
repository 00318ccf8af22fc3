// Package score runs the wellness assessment stage on top of a scoring
// backend.
package score

import (
	"context"
	"fmt"

	"github.com/mediquest/medscan/pkg/client"
	"github.com/mediquest/medscan/pkg/report"
	"github.com/mediquest/medscan/pkg/types"
)

// Stage invokes a scoring backend and guarantees a usable result.
type Stage struct {
	scorer client.Scorer
}

// New creates a scoring stage. A nil scorer is allowed; every assessment
// then returns the fallback.
func New(scorer client.Scorer) *Stage {
	return &Stage{scorer: scorer}
}

// Assess returns the backend's score, or the zero-score fallback when the
// backend is missing, fails or returns nothing. Callers never see an error.
func (s *Stage) Assess(ctx context.Context, req types.ScoreRequest) *types.HealthScore {
	if s.scorer == nil {
		return report.FallbackHealthScore()
	}

	hs, err := s.scorer.ScoreHealth(ctx, req)
	if err != nil || hs == nil {
		return report.FallbackHealthScore()
	}
	return hs
}

// HistoryFromRecords condenses past scan reports into the history lines a
// score request carries. Boxless findings count too; only records without a
// report are skipped.
func HistoryFromRecords(records []*types.PipelineRecord) []string {
	history := []string{}
	for _, rec := range records {
		if rec == nil || rec.Report == nil {
			continue
		}
		if len(rec.Report.Findings) == 0 {
			history = append(history, fmt.Sprintf("%s: %s", rec.Name, rec.Report.Summary))
			continue
		}
		for _, f := range rec.Report.Findings {
			history = append(history, fmt.Sprintf("%s: %s (%s confidence)", rec.Name, f.Label, f.Tier()))
		}
	}
	return history
}
