// Package client defines the capability interfaces the pipeline depends on.
// Each AI stage is pluggable: backends live in pkg/gemini, pkg/ollama and
// pkg/enhance, and tests substitute in-memory fakes.
package client

import (
	"context"

	"github.com/mediquest/medscan/pkg/types"
)

// Enhancer improves a scan's clarity before analysis.
//
// EnhanceImage must not fail the pipeline: returning (nil, nil) means the
// backend declined (unsupported format, no enhanced image in the response)
// and the caller proceeds with the original bytes. An error carries the
// same meaning to the caller but is worth logging.
type Enhancer interface {
	EnhanceImage(ctx context.Context, data []byte, mimeType string) ([]byte, error)
}

// Analyzer produces the structured findings report for a scan. The report
// is already normalized: findings non-nil, disclaimer present. A non-nil
// error means the stage itself failed (transport, timeout), not that the
// model's output was malformed.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, mimeType string) (*types.AnalysisReport, error)
}

// Scorer produces an overall wellness assessment from profile, symptom and
// medication data.
type Scorer interface {
	ScoreHealth(ctx context.Context, req types.ScoreRequest) (*types.HealthScore, error)
}
