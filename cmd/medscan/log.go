package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mediquest/medscan"
	"github.com/mediquest/medscan/pkg/types"
)

var (
	logSeverity int
	logNotes    string
	logList     bool
)

var logCmd = &cobra.Command{
	Use:   "log [symptom]",
	Short: "Record or list symptoms",
	Long: `Record a symptom in the patient's log, or list the logged entries.

Examples:
  medscan log "headache" --severity 4
  medscan log "chest pain" -s 8 -n "worse when climbing stairs"
  medscan log --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logSeverity, "severity", "s", 5, "severity from 1 (mild) to 10 (severe)")
	logCmd.Flags().StringVarP(&logNotes, "notes", "n", "", "free-form notes")
	logCmd.Flags().BoolVarP(&logList, "list", "l", false, "list logged symptoms")
}

func runLog(cmd *cobra.Command, args []string) error {
	ms, err := newInstance()
	if err != nil {
		return err
	}
	defer ms.Close()

	ctx := context.Background()
	if len(args) == 0 || logList {
		return listSymptoms(ctx, ms)
	}

	if logSeverity < 1 || logSeverity > 10 {
		return fmt.Errorf("severity must be between 1 and 10")
	}

	entry := types.SymptomEntry{
		Name:     args[0],
		Severity: logSeverity,
		Notes:    logNotes,
	}
	if err := ms.LogSymptom(ctx, entry); err != nil {
		return err
	}
	fmt.Printf("Logged %q (severity %d)\n", entry.Name, entry.Severity)
	return nil
}

func listSymptoms(ctx context.Context, ms *medscan.MedScan) error {
	symptoms, err := ms.Symptoms(ctx)
	if err != nil {
		return err
	}
	if len(symptoms) == 0 {
		fmt.Printf("No symptoms logged%s\n", storeHint())
		return nil
	}

	dim := color.New(color.FgHiBlack)
	for _, s := range symptoms {
		fmt.Printf("%s  %-24s  severity %d/10\n",
			s.RecordedAt.Local().Format("2006-01-02 15:04"), s.Name, s.Severity)
		if s.Notes != "" {
			_, _ = dim.Printf("                  %s\n", s.Notes)
		}
	}
	return nil
}
