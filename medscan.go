// Package medscan turns uploaded medical scans into annotated, explained
// reports for a patient-facing health dashboard.
//
// An uploaded image or document runs through a fixed pipeline: the image is
// optionally enhanced by an AI backend, analyzed for notable findings with
// normalized bounding boxes, and persisted with its report. Renderers turn a
// finished record into an interactive annotation view or a flattened PNG
// export, and a scoring stage condenses the patient's profile, symptom log,
// and scan history into a single wellness assessment.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//		"os"
//
//		"github.com/mediquest/medscan"
//	)
//
//	func main() {
//		ms, err := medscan.New()
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer ms.Close()
//
//		f, err := os.Open("chest-xray.png")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer f.Close()
//
//		rec, err := ms.ProcessScan(context.Background(), "chest-xray.png", "image/png", f)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Println(rec.Report.Summary)
//		for _, finding := range rec.Report.Findings {
//			fmt.Printf("  %s (%s confidence)\n", finding.Label, finding.Tier())
//		}
//
//		path, err := ms.ExportToFile(rec, "exports")
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println("annotated copy saved to", path)
//	}
//
// The AI stages never fail a run: enhancement errors leave the original
// image in place, and analysis errors produce a fixed fallback report. The
// only hard failures are an unreadable upload and a store that rejects the
// finished record; in the latter case the record is still returned so the
// caller can retry persisting it.
package medscan

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mediquest/medscan/internal/config"
	"github.com/mediquest/medscan/internal/utils"
	"github.com/mediquest/medscan/pkg/annotate"
	"github.com/mediquest/medscan/pkg/client"
	"github.com/mediquest/medscan/pkg/enhance"
	"github.com/mediquest/medscan/pkg/export"
	"github.com/mediquest/medscan/pkg/gemini"
	"github.com/mediquest/medscan/pkg/llamacpp"
	"github.com/mediquest/medscan/pkg/ollama"
	"github.com/mediquest/medscan/pkg/pipeline"
	"github.com/mediquest/medscan/pkg/processing"
	"github.com/mediquest/medscan/pkg/score"
	"github.com/mediquest/medscan/pkg/store"
	"github.com/mediquest/medscan/pkg/types"
)

// Version of the medscan library
const Version = "0.1.0"

// storeConnectTimeout bounds the initial database connection attempt. When
// the database cannot be reached the dashboard keeps working against the
// in-memory store.
const storeConnectTimeout = 10 * time.Second

// MedScan provides a high-level interface to the scan pipeline, the
// renderers, and the patient's health data.
type MedScan struct {
	cfg      *config.Config
	pipeline *pipeline.Orchestrator
	scorer   *score.Stage
	exporter *export.Renderer
	store    store.Store
	userID   string
	offline  bool
}

// Option overrides a component during construction. Used by callers that
// supply their own backends, and by tests.
type Option func(*components)

// components collects the injectable pieces before assembly.
type components struct {
	analyzer client.Analyzer
	enhancer client.Enhancer
	scorer   client.Scorer
	store    store.Store
	emitter  pipeline.StatusEmitter
}

// WithAnalyzer replaces the configured analysis backend.
func WithAnalyzer(a client.Analyzer) Option {
	return func(c *components) { c.analyzer = a }
}

// WithEnhancer replaces the configured enhancement backend.
func WithEnhancer(e client.Enhancer) Option {
	return func(c *components) { c.enhancer = e }
}

// WithScorer replaces the configured scoring backend.
func WithScorer(s client.Scorer) Option {
	return func(c *components) { c.scorer = s }
}

// WithStore replaces the configured store.
func WithStore(st store.Store) Option {
	return func(c *components) { c.store = st }
}

// WithEmitter registers a status emitter for pipeline phase events.
func WithEmitter(em pipeline.StatusEmitter) Option {
	return func(c *components) { c.emitter = em }
}

// New creates a MedScan instance with the default configuration.
func New(opts ...Option) (*MedScan, error) {
	return NewWithConfig(config.Default(), opts...)
}

// NewWithConfig creates a MedScan instance from the given configuration.
// Backends are built according to the configured provider unless an Option
// substitutes them. When the configured database is unreachable the instance
// falls back to the in-memory store and reports Offline().
func NewWithConfig(cfg *config.Config, opts ...Option) (*MedScan, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var comps components
	for _, opt := range opts {
		opt(&comps)
	}

	if comps.analyzer == nil {
		if err := buildBackend(cfg, &comps); err != nil {
			return nil, err
		}
	}
	if comps.enhancer == nil {
		comps.enhancer = buildEnhancer(cfg)
	}

	offline := false
	if comps.store == nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
		st, err := store.Open(ctx, cfg.Store.DatabaseURL)
		cancel()
		if err != nil {
			st = store.NewMemory()
			offline = true
		}
		comps.store = st
	}

	userID := cfg.Store.UserID
	if userID == "" {
		userID = "local"
	}

	orch := pipeline.NewWithOptions(comps.analyzer, comps.store, pipeline.Options{
		Enhancer: comps.enhancer,
		Emitter:  comps.emitter,
		UserID:   userID,
	})

	return &MedScan{
		cfg:      cfg,
		pipeline: orch,
		scorer:   score.New(comps.scorer),
		exporter: export.NewWithOptions(processing.NewProcessor(), exportOptions(cfg)),
		store:    comps.store,
		userID:   userID,
		offline:  offline,
	}, nil
}

// buildBackend constructs the provider's clients for the capability slots
// still unset.
func buildBackend(cfg *config.Config, comps *components) error {
	timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	switch cfg.Backend.Provider {
	case "gemini":
		c := gemini.New(cfg.Backend.APIKey(),
			gemini.WithModels(cfg.Backend.GeminiModel, cfg.Backend.GeminiEnhanceModel),
			gemini.WithRateLimit(cfg.Backend.RequestsPerSecond, 4),
			gemini.WithTimeout(timeout),
		)
		comps.analyzer = c
		if comps.scorer == nil {
			comps.scorer = c
		}
		if comps.enhancer == nil && cfg.Enhance.Mode == "backend" {
			comps.enhancer = c
		}
	case "ollama":
		c, err := ollama.NewClient(cfg.Backend.OllamaURL, cfg.Backend.OllamaModel)
		if err != nil {
			return fmt.Errorf("failed to create ollama client: %w", err)
		}
		comps.analyzer = c
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.Backend.LlamaCppURL, cfg.Backend.LlamaCppModel)
		if err != nil {
			return fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		comps.analyzer = c
	default:
		return fmt.Errorf("unknown backend provider %q", cfg.Backend.Provider)
	}
	return nil
}

// buildEnhancer resolves the enhancement stage for providers that do not
// supply one. The local providers have no image-output model, so "backend"
// mode degrades to the local enhancer there.
func buildEnhancer(cfg *config.Config) client.Enhancer {
	switch cfg.Enhance.Mode {
	case "off":
		return nil
	default:
		ec := enhance.DefaultConfig()
		ec.Quality = cfg.Enhance.Quality
		return enhance.NewWithConfig(ec)
	}
}

func exportOptions(cfg *config.Config) export.Options {
	opts := export.DefaultOptions()
	if cfg.Output.Suffix != "" {
		opts.Suffix = cfg.Output.Suffix
	}
	return opts
}

// ProcessScan runs one uploaded document through the pipeline: read,
// optional enhancement, analysis, persistence. See pipeline.Process for the
// error contract.
func (m *MedScan) ProcessScan(ctx context.Context, name, mimeType string, r io.Reader) (*types.PipelineRecord, error) {
	return m.pipeline.Process(ctx, name, mimeType, r)
}

// ProcessFile is a convenience wrapper around ProcessScan that reads the
// upload from disk and detects its mime type from the filename.
func (m *MedScan) ProcessFile(ctx context.Context, path string) (*types.PipelineRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	return m.ProcessScan(ctx, name, utils.DetectMimeType(path), f)
}

// Viewer returns an annotation renderer for the record's report, starting in
// the configured view mode. The renderer is independent of the record; it
// can outlive it.
func (m *MedScan) Viewer(rec *types.PipelineRecord) *annotate.Renderer {
	var rep *types.AnalysisReport
	if rec != nil {
		rep = rec.Report
	}
	r := annotate.NewRenderer(rep)
	r.SetMode(annotate.ParseViewMode(m.cfg.Viewer.Mode))
	return r
}

// Export flattens the record's image and findings into a PNG artifact at the
// scan's native resolution. Records without a report or image produce no
// artifact and no error.
func (m *MedScan) Export(rec *types.PipelineRecord) (*export.Artifact, error) {
	return m.exporter.Render(rec)
}

// ExportToFile renders the export artifact and writes it under dir,
// returning the written path. An empty dir uses the configured output
// directory.
func (m *MedScan) ExportToFile(rec *types.PipelineRecord, dir string) (string, error) {
	artifact, err := m.Export(rec)
	if err != nil {
		return "", err
	}
	if artifact == nil {
		return "", fmt.Errorf("record has nothing to export")
	}

	if dir == "" {
		dir = m.cfg.Output.OutputDir
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, artifact.Name)
	if err := os.WriteFile(path, artifact.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// Score assembles the patient's profile, symptom log, and scan history into
// a scoring request and runs the assessment. Scoring backend failures
// degrade to the zero-score fallback; only store errors are returned.
func (m *MedScan) Score(ctx context.Context) (*types.HealthScore, error) {
	profile, err := m.store.Profile(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	symptoms, err := m.store.Symptoms(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load symptoms: %w", err)
	}
	records, err := m.store.Records(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	req := types.ScoreRequest{
		Symptoms: symptoms,
		History:  score.HistoryFromRecords(records),
	}
	if profile != nil {
		req.Profile = *profile
	}

	return m.scorer.Assess(ctx, req), nil
}

// SaveProfile stores the patient's health profile.
func (m *MedScan) SaveProfile(ctx context.Context, profile types.HealthProfile) error {
	return m.store.SaveProfile(ctx, m.userID, profile)
}

// Profile returns the stored health profile, or nil when none exists.
func (m *MedScan) Profile(ctx context.Context) (*types.HealthProfile, error) {
	return m.store.Profile(ctx, m.userID)
}

// LogSymptom appends an entry to the patient's symptom log. A blank ID or
// zero timestamp is filled in by the store.
func (m *MedScan) LogSymptom(ctx context.Context, entry types.SymptomEntry) error {
	return m.store.AppendSymptom(ctx, m.userID, entry)
}

// Symptoms returns the patient's symptom log, oldest first.
func (m *MedScan) Symptoms(ctx context.Context) ([]types.SymptomEntry, error) {
	return m.store.Symptoms(ctx, m.userID)
}

// Records returns the patient's scan records, oldest first.
func (m *MedScan) Records(ctx context.Context) ([]*types.PipelineRecord, error) {
	return m.store.Records(ctx, m.userID)
}

// Subscribe registers fn for records saved after this call. The returned
// cancel function stops delivery.
func (m *MedScan) Subscribe(fn func(*types.PipelineRecord)) (func(), error) {
	return m.store.Subscribe(m.userID, fn)
}

// Offline reports whether the configured database was unreachable and the
// instance fell back to the in-memory store.
func (m *MedScan) Offline() bool {
	return m.offline
}

// UserID returns the patient identifier records are stored under.
func (m *MedScan) UserID() string {
	return m.userID
}

// Close releases the store connection and cancels subscriptions.
func (m *MedScan) Close() error {
	return m.store.Close()
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
