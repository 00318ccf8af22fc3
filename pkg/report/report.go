// Package report is the normalization boundary between raw vision-model
// output and the structured types the rest of the pipeline consumes. All
// model JSON enters the system through this package; callers never see a
// parse error, only a well-formed report.
package report

import (
	"encoding/json"
	"strings"

	"github.com/mediquest/medscan/pkg/types"
)

const (
	// FallbackSummary replaces the model's summary when its output cannot
	// be parsed into the expected structure.
	FallbackSummary = "The analysis could not be completed in a structured format. Please consult a healthcare professional for an accurate interpretation of this scan."

	// StandardDisclaimer closes every report shown to a patient.
	StandardDisclaimer = "This AI-generated analysis is for informational purposes only and is not a substitute for professional medical advice, diagnosis, or treatment. Always consult a qualified healthcare provider with any questions about a medical condition."
)

// FallbackReport returns the report used when model output is unusable.
// The pipeline still completes; the patient sees a safe message instead
// of an error page.
func FallbackReport() *types.AnalysisReport {
	return &types.AnalysisReport{
		Summary:    FallbackSummary,
		Findings:   []types.Finding{},
		Disclaimer: StandardDisclaimer,
	}
}

// reportEnvelope defers findings decoding so a malformed findings value
// (null, a bare string, a truncated array) cannot sink the whole report.
type reportEnvelope struct {
	Summary    string          `json:"summary"`
	Findings   json.RawMessage `json:"findings"`
	Disclaimer string          `json:"disclaimer"`
}

// ParseAnalysisReport converts raw model output into an AnalysisReport.
// It never fails: fences and comments are stripped, findings are coerced
// to a non-nil slice, and unparseable output yields FallbackReport.
func ParseAnalysisReport(raw string) *types.AnalysisReport {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return FallbackReport()
	}

	var env reportEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return FallbackReport()
	}

	rep := &types.AnalysisReport{
		Summary:    strings.TrimSpace(env.Summary),
		Findings:   parseFindings(env.Findings),
		Disclaimer: strings.TrimSpace(env.Disclaimer),
	}
	if rep.Summary == "" {
		rep.Summary = FallbackSummary
	}
	if rep.Disclaimer == "" {
		rep.Disclaimer = StandardDisclaimer
	}
	return rep
}

// parseFindings decodes the findings array, salvaging well-formed entries
// when individual items are broken. The result is never nil.
func parseFindings(raw json.RawMessage) []types.Finding {
	findings := []types.Finding{}
	if len(raw) == 0 || string(raw) == "null" {
		return findings
	}

	var direct []types.Finding
	if err := json.Unmarshal(raw, &direct); err == nil {
		if direct == nil {
			return findings
		}
		return direct
	}

	// Per-item salvage: keep entries that decode, drop the rest.
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return findings
	}
	for _, item := range items {
		var f types.Finding
		if err := json.Unmarshal(item, &f); err != nil {
			continue
		}
		findings = append(findings, f)
	}
	return findings
}
