package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mediquest/medscan/pkg/types"
)

var (
	exportLatest bool
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export [record-id]",
	Short: "Write an annotated copy of a stored scan",
	Long: `Export a stored scan as a PNG with its findings drawn on the image
at full resolution.

The record ID may be abbreviated to any unique prefix; see 'medscan records'
for the list of stored scans.

Examples:
  medscan export 4fa2c1d8
  medscan export --latest --out ./reports`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportLatest, "latest", false, "export the most recent record")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output directory")
}

func runExport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !exportLatest {
		return fmt.Errorf("provide a record ID or --latest")
	}

	ms, err := newInstance()
	if err != nil {
		return err
	}
	defer ms.Close()

	ctx := context.Background()
	records, err := ms.Records(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no stored records%s", storeHint())
	}

	var rec *types.PipelineRecord
	if exportLatest {
		rec = records[len(records)-1]
	} else {
		rec, err = findRecord(records, args[0])
		if err != nil {
			return err
		}
	}

	path, err := ms.ExportToFile(rec, exportOut)
	if err != nil {
		return err
	}
	fmt.Printf("Annotated copy written to %s\n", path)
	return nil
}

// findRecord matches an ID or unique ID prefix against the stored records.
func findRecord(records []*types.PipelineRecord, id string) (*types.PipelineRecord, error) {
	var matches []*types.PipelineRecord
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
		if strings.HasPrefix(rec.ID, id) {
			matches = append(matches, rec)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no record matches %q", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d records, use more characters", id, len(matches))
	}
}
