package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mediquest/medscan/pkg/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Generate a wellness assessment",
	Long: `Generate a wellness assessment from the stored health profile, the
symptom log, and past scan findings.

The assessment is informational and does not replace medical advice.`,
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	ms, err := newInstance()
	if err != nil {
		return err
	}
	defer ms.Close()

	hs, err := ms.Score(context.Background())
	if err != nil {
		return err
	}

	printScore(cmd.OutOrStdout(), hs)
	return nil
}

func printScore(w io.Writer, hs *types.HealthScore) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(w)
	printScoreBar(w, hs.HealthScore)
	fmt.Fprintln(w)
	fmt.Fprintln(w, hs.Summary)
	fmt.Fprintln(w)

	if len(hs.RiskFactors) > 0 {
		_, _ = bold.Fprintln(w, "RISK FACTORS")
		for _, rf := range hs.RiskFactors {
			fmt.Fprintf(w, "- %s\n", rf)
		}
		fmt.Fprintln(w)
	}

	if len(hs.Recommendations) > 0 {
		_, _ = bold.Fprintln(w, "RECOMMENDATIONS")
		for _, r := range hs.Recommendations {
			fmt.Fprintf(w, "- %s\n", r)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprint(w, "Urgency: ")
	_, _ = urgencyColor(hs.Urgency).Fprintln(w, hs.Urgency)
	if hs.DoctorSpecialty != "" {
		_, _ = dim.Fprintf(w, "Suggested specialist: %s\n", hs.DoctorSpecialty)
	}
}

func printScoreBar(w io.Writer, score int) {
	const barWidth = 24
	filled := score * barWidth / 100
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	var barColor *color.Color
	switch {
	case score >= 80:
		barColor = color.New(color.FgGreen)
	case score >= 40:
		barColor = color.New(color.FgYellow)
	default:
		barColor = color.New(color.FgRed)
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(w, "Health score: %d/100 ", score)
	_, _ = barColor.Fprintln(w, bar)
}

func urgencyColor(urgency string) *color.Color {
	switch urgency {
	case types.UrgencyEmergency, types.UrgencyHigh:
		return color.New(color.FgRed)
	case types.UrgencyModerate:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
