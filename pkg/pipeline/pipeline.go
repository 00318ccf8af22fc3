// Package pipeline sequences one uploaded scan through enhancement, analysis,
// and persistence. Every run terminates with a well-formed record or a read
// error; the AI stages degrade to documented fallbacks instead of failing the
// run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/mediquest/medscan/internal/utils"
	"github.com/mediquest/medscan/pkg/client"
	"github.com/mediquest/medscan/pkg/report"
	"github.com/mediquest/medscan/pkg/store"
	"github.com/mediquest/medscan/pkg/types"
)

// defaultUserID owns records when no user is configured, the single-patient
// offline mode.
const defaultUserID = "local"

// Options configure an Orchestrator beyond its required analyzer and store.
type Options struct {
	// Enhancer runs before analysis on image uploads. Nil skips the stage.
	Enhancer client.Enhancer

	// Emitter observes phase transitions. Nil discards them.
	Emitter StatusEmitter

	// UserID owns persisted records. Blank selects the local single-patient ID.
	UserID string
}

// Orchestrator runs uploads through the scan pipeline. Its stage backends and
// storage strategy are fixed at construction; concurrent Process calls are
// safe, each record carries its own state.
type Orchestrator struct {
	enhancer client.Enhancer
	analyzer client.Analyzer
	store    store.Store
	emitter  StatusEmitter
	userID   string
}

// New returns an orchestrator with no enhancement stage and no status
// emitter. A nil store falls back to a private in-memory store.
func New(analyzer client.Analyzer, st store.Store) *Orchestrator {
	return NewWithOptions(analyzer, st, Options{})
}

// NewWithOptions returns a fully configured orchestrator.
func NewWithOptions(analyzer client.Analyzer, st store.Store, opts Options) *Orchestrator {
	if st == nil {
		st = store.NewMemory()
	}
	userID := opts.UserID
	if userID == "" {
		userID = defaultUserID
	}
	return &Orchestrator{
		enhancer: opts.Enhancer,
		analyzer: analyzer,
		store:    st,
		emitter:  opts.Emitter,
		userID:   userID,
	}
}

// UserID returns the owner recorded against persisted records.
func (o *Orchestrator) UserID() string {
	return o.userID
}

// Process runs one uploaded document through the pipeline and returns the
// completed record. The error is non-nil only when the upload cannot be read,
// in which case no record exists, or when the finished record cannot be
// persisted, in which case the record is still returned so the caller can
// retry saving without re-running the AI stages.
func (o *Orchestrator) Process(ctx context.Context, name, mimeType string, r io.Reader) (*types.PipelineRecord, error) {
	rec := &types.PipelineRecord{
		ID:        uuid.New().String(),
		Name:      name,
		MimeType:  mimeType,
		Timestamp: time.Now().UTC(),
	}

	o.emit(rec.ID, PhaseUploading, "")
	data, err := io.ReadAll(r)
	if err != nil {
		o.emit(rec.ID, PhaseFailed, fmt.Sprintf("Could not read %s", name))
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		o.emit(rec.ID, PhaseFailed, fmt.Sprintf("%s is empty", name))
		return nil, errors.New("upload is empty")
	}
	rec.Original = data

	if o.enhancer != nil && utils.IsImageMime(mimeType) {
		o.emit(rec.ID, PhaseEnhancing, "")
		if enhanced, err := o.enhancer.EnhanceImage(ctx, data, mimeType); err == nil && len(enhanced) > 0 {
			rec.Enhanced = enhanced
		}
	}

	o.emit(rec.ID, PhaseAnalyzing, "")
	rec.Report = o.analyze(ctx, rec)

	o.emit(rec.ID, PhaseFinalizing, "")
	if err := o.store.SaveReport(ctx, o.userID, rec); err != nil {
		o.emit(rec.ID, PhaseFailed, "Report could not be saved")
		return rec, fmt.Errorf("failed to persist record: %w", err)
	}

	o.emit(rec.ID, PhaseDone, "")
	return rec, nil
}

// analyze runs the analysis stage on the record's final bytes. It always
// returns a report with non-nil findings.
func (o *Orchestrator) analyze(ctx context.Context, rec *types.PipelineRecord) *types.AnalysisReport {
	if o.analyzer == nil {
		return report.FallbackReport()
	}

	rep, err := o.analyzer.AnalyzeImage(ctx, rec.FinalBytes(), rec.MimeType)
	if err != nil || rep == nil {
		return report.FallbackReport()
	}
	if rep.Findings == nil {
		rep.Findings = []types.Finding{}
	}
	return rep
}

func (o *Orchestrator) emit(recordID string, phase Phase, message string) {
	if o.emitter == nil {
		return
	}
	if message == "" {
		message = phase.Label()
	}
	o.emitter.Emit(StatusEvent{RecordID: recordID, Phase: phase, Message: message})
}
