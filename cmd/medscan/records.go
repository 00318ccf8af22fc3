package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mediquest/medscan/internal/utils"
	"github.com/mediquest/medscan/pkg/types"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List stored scan records",
	RunE:  runRecords,
}

func runRecords(cmd *cobra.Command, args []string) error {
	ms, err := newInstance()
	if err != nil {
		return err
	}
	defer ms.Close()

	records, err := ms.Records(context.Background())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No records stored%s\n", storeHint())
		return nil
	}

	dim := color.New(color.FgHiBlack)
	for _, rec := range records {
		_, _ = dim.Printf("%s  ", shortID(rec.ID))
		fmt.Printf("%s  %-28s  %s\n",
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			rec.Name,
			describeRecord(rec))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func describeRecord(rec *types.PipelineRecord) string {
	if rec.Report == nil {
		return "no report"
	}
	desc := fmt.Sprintf("%d findings", len(rec.Report.Findings))
	if len(rec.Enhanced) > 0 {
		desc += ", enhanced"
	}
	if n := len(rec.FinalBytes()); n > 0 {
		desc += ", " + utils.FormatFileSize(int64(n))
	}
	return desc
}
