package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/mediquest/medscan/pkg/report"
	"github.com/mediquest/medscan/pkg/store"
	"github.com/mediquest/medscan/pkg/types"
)

type fakeEnhancer struct {
	out   []byte
	err   error
	calls int
}

func (f *fakeEnhancer) EnhanceImage(_ context.Context, data []byte, mimeType string) ([]byte, error) {
	f.calls++
	return f.out, f.err
}

type fakeAnalyzer struct {
	report *types.AnalysisReport
	err    error
	got    []byte
}

func (f *fakeAnalyzer) AnalyzeImage(_ context.Context, data []byte, _ string) (*types.AnalysisReport, error) {
	f.got = append([]byte(nil), data...)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

// freshAnalyzer returns a new report per call, safe for concurrent uploads.
type freshAnalyzer struct{}

func (freshAnalyzer) AnalyzeImage(_ context.Context, _ []byte, _ string) (*types.AnalysisReport, error) {
	return &types.AnalysisReport{Summary: "ok", Findings: []types.Finding{}}, nil
}

type captureEmitter struct {
	events []StatusEvent
}

func (c *captureEmitter) Emit(ev StatusEvent) {
	c.events = append(c.events, ev)
}

func (c *captureEmitter) phases() []Phase {
	out := make([]Phase, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Phase
	}
	return out
}

func samePhases(got, want []Phase) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestProcessEnhancedScan(t *testing.T) {
	enhanced := []byte("enhanced-jpeg")
	enh := &fakeEnhancer{out: enhanced}
	ana := &fakeAnalyzer{report: &types.AnalysisReport{
		Summary: "One visual and one textual finding.",
		Findings: []types.Finding{
			{Label: "Nodule", Confidence: "High", Box: &types.NormalizedBox{YMin: 0.1, XMin: 0.1, YMax: 0.3, XMax: 0.4}},
			{Label: "Elevated glucose", Confidence: "Medium"},
		},
		Disclaimer: "Informational only.",
	}}
	st := store.NewMemory()
	em := &captureEmitter{}
	o := NewWithOptions(ana, st, Options{Enhancer: enh, Emitter: em, UserID: "alice"})

	rec, err := o.Process(context.Background(), "scan.jpg", "image/jpeg", strings.NewReader("raw-jpeg"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if !bytes.Equal(rec.Enhanced, enhanced) {
		t.Error("record is missing the enhanced bytes")
	}
	if !bytes.Equal(ana.got, enhanced) {
		t.Error("analysis did not run on the enhanced bytes")
	}
	if len(rec.Report.Findings) != 2 {
		t.Fatalf("got %d findings, want 2", len(rec.Report.Findings))
	}
	if n := len(rec.Report.SpatialFindings()); n != 1 {
		t.Errorf("got %d spatial findings, want 1", n)
	}

	want := []Phase{PhaseUploading, PhaseEnhancing, PhaseAnalyzing, PhaseFinalizing, PhaseDone}
	if got := em.phases(); !samePhases(got, want) {
		t.Errorf("phases = %v, want %v", got, want)
	}

	records, _ := st.Records(context.Background(), "alice")
	if len(records) != 1 || records[0].ID != rec.ID {
		t.Errorf("record was not persisted for its user")
	}
}

func TestProcessSkipsEnhancementForDocuments(t *testing.T) {
	original := "%PDF-1.4 lab results"
	enh := &fakeEnhancer{out: []byte("should-not-run")}
	ana := &fakeAnalyzer{report: &types.AnalysisReport{Summary: "ok", Findings: []types.Finding{}}}
	em := &captureEmitter{}
	o := NewWithOptions(ana, store.NewMemory(), Options{Enhancer: enh, Emitter: em})

	rec, err := o.Process(context.Background(), "labs.pdf", "application/pdf", strings.NewReader(original))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if enh.calls != 0 {
		t.Errorf("enhancer ran %d times for a PDF", enh.calls)
	}
	if rec.Enhanced != nil {
		t.Error("PDF record carries enhanced bytes")
	}
	if !bytes.Equal(ana.got, []byte(original)) {
		t.Error("analysis did not run on the original bytes")
	}

	want := []Phase{PhaseUploading, PhaseAnalyzing, PhaseFinalizing, PhaseDone}
	if got := em.phases(); !samePhases(got, want) {
		t.Errorf("phases = %v, want %v", got, want)
	}
}

func TestProcessAnalysisFailureFallsBack(t *testing.T) {
	ana := &fakeAnalyzer{err: errors.New("model unavailable")}
	st := store.NewMemory()
	em := &captureEmitter{}
	o := NewWithOptions(ana, st, Options{Emitter: em})

	rec, err := o.Process(context.Background(), "scan.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.Report == nil {
		t.Fatal("record has no report")
	}
	if rec.Report.Summary != report.FallbackSummary {
		t.Errorf("Summary = %q, want the fallback summary", rec.Report.Summary)
	}
	if rec.Report.Disclaimer != report.StandardDisclaimer {
		t.Errorf("Disclaimer = %q, want the standard disclaimer", rec.Report.Disclaimer)
	}
	if rec.Report.Findings == nil || len(rec.Report.Findings) != 0 {
		t.Errorf("Findings = %v, want empty non-nil", rec.Report.Findings)
	}

	if last := em.events[len(em.events)-1].Phase; last != PhaseDone {
		t.Errorf("terminal phase = %s, want done", last)
	}
	records, _ := st.Records(context.Background(), o.UserID())
	if len(records) != 1 {
		t.Errorf("fallback record was not persisted")
	}
}

func TestProcessEnhancementNeverFailsTheRun(t *testing.T) {
	cases := []struct {
		name string
		enh  *fakeEnhancer
	}{
		{"call error", &fakeEnhancer{err: errors.New("quota exceeded")}},
		{"declined", &fakeEnhancer{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			original := "raw-png"
			ana := &fakeAnalyzer{report: &types.AnalysisReport{Summary: "ok", Findings: []types.Finding{}}}
			o := NewWithOptions(ana, store.NewMemory(), Options{Enhancer: tc.enh})

			rec, err := o.Process(context.Background(), "scan.png", "image/png", strings.NewReader(original))
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if rec.Enhanced != nil {
				t.Error("record carries enhanced bytes")
			}
			if !bytes.Equal(ana.got, []byte(original)) {
				t.Error("analysis did not fall back to the original bytes")
			}
		})
	}
}

func TestProcessReadFailure(t *testing.T) {
	st := store.NewMemory()
	em := &captureEmitter{}
	o := NewWithOptions(&fakeAnalyzer{}, st, Options{Emitter: em})

	rec, err := o.Process(context.Background(), "scan.png", "image/png", iotest.ErrReader(errors.New("disk error")))
	if err == nil {
		t.Fatal("expected an error for an unreadable upload")
	}
	if rec != nil {
		t.Errorf("partial record produced: %+v", rec)
	}

	if last := em.events[len(em.events)-1].Phase; last != PhaseFailed {
		t.Errorf("terminal phase = %s, want failed", last)
	}
	records, _ := st.Records(context.Background(), o.UserID())
	if len(records) != 0 {
		t.Errorf("%d records persisted for a failed upload", len(records))
	}
}

func TestProcessEmptyUpload(t *testing.T) {
	o := New(&fakeAnalyzer{}, store.NewMemory())

	rec, err := o.Process(context.Background(), "scan.png", "image/png", strings.NewReader(""))
	if err == nil {
		t.Fatal("expected an error for an empty upload")
	}
	if rec != nil {
		t.Errorf("record produced for an empty upload: %+v", rec)
	}
}

func TestProcessPersistFailureKeepsRecord(t *testing.T) {
	st := store.NewMemory()
	st.Close()
	em := &captureEmitter{}
	ana := &fakeAnalyzer{report: &types.AnalysisReport{Summary: "ok", Findings: []types.Finding{}}}
	o := NewWithOptions(ana, st, Options{Emitter: em})

	rec, err := o.Process(context.Background(), "scan.png", "image/png", strings.NewReader("png-bytes"))
	if err == nil {
		t.Fatal("expected a persistence error")
	}
	if rec == nil || rec.Report == nil {
		t.Fatal("completed record was not returned for retry")
	}
	if last := em.events[len(em.events)-1].Phase; last != PhaseFailed {
		t.Errorf("terminal phase = %s, want failed", last)
	}
}

func TestProcessCoercesNilFindings(t *testing.T) {
	ana := &fakeAnalyzer{report: &types.AnalysisReport{Summary: "no findings listed"}}
	o := New(ana, store.NewMemory())

	rec, err := o.Process(context.Background(), "scan.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if rec.Report.Findings == nil {
		t.Error("findings left nil")
	}
}

func TestProcessConcurrentUploads(t *testing.T) {
	st := store.NewMemory()
	o := New(freshAnalyzer{}, st)

	const uploads = 8
	var wg sync.WaitGroup
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("scan-%d.png", i)
			if _, err := o.Process(context.Background(), name, "image/png", strings.NewReader("png-bytes")); err != nil {
				t.Errorf("Process %s failed: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	records, err := st.Records(context.Background(), o.UserID())
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != uploads {
		t.Errorf("got %d records, want %d", len(records), uploads)
	}
}

func TestPhaseLabels(t *testing.T) {
	phases := []Phase{PhaseUploading, PhaseEnhancing, PhaseAnalyzing, PhaseFinalizing, PhaseDone, PhaseFailed}
	seen := make(map[string]bool)
	for _, p := range phases {
		label := p.Label()
		if label == "" {
			t.Errorf("phase %s has no label", p)
		}
		if seen[label] {
			t.Errorf("label %q reused", label)
		}
		seen[label] = true
	}

	if PhaseAnalyzing.Terminal() {
		t.Error("analyzing is not a terminal phase")
	}
	if !PhaseDone.Terminal() || !PhaseFailed.Terminal() {
		t.Error("done and failed are terminal phases")
	}
}

func TestTextEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := &TextEmitter{W: &buf}
	e.Emit(StatusEvent{RecordID: "r1", Phase: PhaseAnalyzing, Message: PhaseAnalyzing.Label()})

	want := "[analyzing] Analyzing scan for anomalies...\n"
	if got := buf.String(); got != want {
		t.Errorf("emitted %q, want %q", got, want)
	}
}

func TestDefaultUserID(t *testing.T) {
	o := New(&fakeAnalyzer{}, store.NewMemory())
	if o.UserID() != "local" {
		t.Errorf("UserID = %q, want local", o.UserID())
	}
}
