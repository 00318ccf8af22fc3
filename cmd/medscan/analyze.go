package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mediquest/medscan"
	"github.com/mediquest/medscan/internal/utils"
	"github.com/mediquest/medscan/pkg/types"
)

var (
	analyzeProvider string
	analyzeModel    string
	analyzeExport   bool
	analyzeOut      string
	analyzeJSON     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a medical scan or document",
	Long: `Analyze a medical image or document and print the findings.

Images are enhanced before analysis when the configured backend supports
it. The record is stored for later export and scoring.

Examples:
  medscan analyze ./chest-xray.png
  medscan analyze ./bloodwork.pdf --provider ollama
  medscan analyze ./mri-slice.jpg --export --out ./reports
  medscan analyze ./chest-xray.png --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProvider, "provider", "p", "", "AI provider (gemini, ollama, llamacpp)")
	analyzeCmd.Flags().StringVarP(&analyzeModel, "model", "m", "", "analysis model name")
	analyzeCmd.Flags().BoolVarP(&analyzeExport, "export", "e", false, "write an annotated copy after analysis")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "output directory for the annotated copy")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the report as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !utils.FileExists(path) {
		return fmt.Errorf("file not found: %s", path)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if analyzeProvider != "" {
		cfg.Backend.Provider = analyzeProvider
	}
	if analyzeModel != "" {
		switch cfg.Backend.Provider {
		case "ollama":
			cfg.Backend.OllamaModel = analyzeModel
		case "llamacpp":
			cfg.Backend.LlamaCppModel = analyzeModel
		default:
			cfg.Backend.GeminiModel = analyzeModel
		}
	}

	printer := newStatusPrinter(os.Stderr)
	defer printer.Close()

	ms, err := medscan.NewWithConfig(cfg, medscan.WithEmitter(printer))
	if err != nil {
		return err
	}
	defer ms.Close()
	if ms.Offline() {
		fmt.Fprintln(os.Stderr, "warning: database unreachable, records will not persist")
	}

	rec, err := ms.ProcessFile(context.Background(), path)
	printer.Close()
	if err != nil {
		if rec == nil {
			return err
		}
		// Analysis finished; only persistence failed.
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if analyzeJSON {
		return printReportJSON(os.Stdout, rec)
	}
	printReport(os.Stdout, rec)

	if analyzeExport {
		exportPath, err := ms.ExportToFile(rec, analyzeOut)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Printf("Annotated copy written to %s\n", exportPath)
	}
	return nil
}

func printReport(w io.Writer, rec *types.PipelineRecord) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "SUMMARY")
	fmt.Fprintln(w, rec.Report.Summary)
	fmt.Fprintln(w)

	if len(rec.Report.Findings) > 0 {
		_, _ = bold.Fprintln(w, "FINDINGS")
		for i, f := range rec.Report.Findings {
			badge := tierColor(f.Tier()).Sprintf("[%s]", strings.ToUpper(string(f.Tier())))
			fmt.Fprintf(w, "%d. %s %s\n", i+1, f.Label, badge)
			if f.Explanation != "" {
				_, _ = dim.Fprintf(w, "   %s\n", f.Explanation)
			}
			if f.Box != nil {
				_, _ = dim.Fprintln(w, "   marked on the annotated image")
			}
		}
		fmt.Fprintln(w)
	}

	_, _ = dim.Fprintln(w, rec.Report.Disclaimer)
}

func tierColor(tier types.ConfidenceTier) *color.Color {
	switch tier {
	case types.TierHigh:
		return color.New(color.FgRed)
	case types.TierMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func printReportJSON(w io.Writer, rec *types.PipelineRecord) error {
	out := struct {
		ID        string                `json:"id"`
		Name      string                `json:"name"`
		MimeType  string                `json:"mimeType"`
		Timestamp time.Time             `json:"timestamp"`
		Enhanced  bool                  `json:"enhanced"`
		Report    *types.AnalysisReport `json:"report"`
	}{rec.ID, rec.Name, rec.MimeType, rec.Timestamp, len(rec.Enhanced) > 0, rec.Report}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
