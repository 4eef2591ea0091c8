package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/notice-escalator/internal/services"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest --file records.{csv,json}",
	Short: "Score a content export and open cases for flagged records",
	Long: `Reads a CSV (columns id or _id, username, email, text) or a JSON array of
records, scores each text against the keyword list and creates a pending case
for every record at or above the threshold. Records already ingested are
skipped, so re-running the same export is safe.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.Open(ingestFile)
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := newApp(cmd.Context(), "ingest")
		if err != nil {
			return err
		}
		defer a.close()

		var sum services.IngestSummary
		switch strings.ToLower(filepath.Ext(ingestFile)) {
		case ".csv":
			sum, err = a.ingest.IngestCSV(cmd.Context(), f)
		case ".json":
			var batch services.Batch
			if batch, err = services.DecodeJSON(f); err == nil {
				sum, err = a.ingest.IngestBatch(cmd.Context(), batch)
			}
		default:
			return fmt.Errorf("%s: expected a .csv or .json file", ingestFile)
		}
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(sum)
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "CSV or JSON export to ingest")
	_ = ingestCmd.MarkFlagRequired("file")
}
