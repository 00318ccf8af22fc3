package pipeline

import (
	"fmt"
	"io"
)

// Phase identifies where a record is in its pipeline run.
type Phase string

const (
	PhaseUploading  Phase = "uploading"
	PhaseEnhancing  Phase = "enhancing"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseFinalizing Phase = "finalizing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Label returns the status line shown to the patient while the phase runs.
func (p Phase) Label() string {
	switch p {
	case PhaseUploading:
		return "Uploading scan..."
	case PhaseEnhancing:
		return "Enhancing image quality..."
	case PhaseAnalyzing:
		return "Analyzing scan for anomalies..."
	case PhaseFinalizing:
		return "Saving report..."
	case PhaseDone:
		return "Analysis complete"
	case PhaseFailed:
		return "Upload failed"
	default:
		return "Processing..."
	}
}

// Terminal reports whether the phase ends a record's pipeline run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// StatusEvent is one observable transition of a record's pipeline run.
type StatusEvent struct {
	RecordID string `json:"recordId"`
	Phase    Phase  `json:"phase"`
	Message  string `json:"message"`
}

// StatusEmitter receives status events as a pipeline advances. Emit is called
// from the goroutine running the pipeline and should return quickly.
type StatusEmitter interface {
	Emit(event StatusEvent)
}

// TextEmitter formats status events as human-readable lines for CLI output.
type TextEmitter struct {
	W io.Writer
}

// Emit writes one formatted status line to the underlying writer.
func (e *TextEmitter) Emit(ev StatusEvent) {
	fmt.Fprintf(e.W, "[%s] %s\n", ev.Phase, ev.Message)
}
