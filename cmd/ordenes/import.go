package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ordenes-backend/internal/config"
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/importer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <archivo.xlsx|archivo.csv>",
		Short: "Import a planning export into draft orders",
		Long:  "Reads a planning export (XLSX or CSV), upserts orders and activities, and prints the per-row report. Bad rows are reported and skipped, never fatal.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			var header []string
			var rows [][]string
			switch strings.ToLower(filepath.Ext(path)) {
			case ".xlsx":
				header, rows, err = importer.ReadXLSX(f)
			case ".csv":
				header, rows, err = importer.ReadCSV(f)
			default:
				return fmt.Errorf("unsupported file type %q: want .xlsx or .csv", filepath.Ext(path))
			}
			if err != nil {
				return err
			}

			cfg := config.Load()
			database.Init(cfg.DBDriver, cfg.DBDSN)

			rec := importer.Reconciler{
				DB:                database.DB,
				OverwriteNonDraft: cfg.ImportOverwriteNonDraft,
			}
			report := rec.Run(header, rows)

			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen)
			yellow := color.New(color.FgYellow)
			red := color.New(color.FgRed)

			green.Fprintf(out, "created: %d\n", report.Created)
			yellow.Fprintf(out, "updated: %d\n", report.Updated)
			red.Fprintf(out, "failed:  %d\n", report.Failed)
			for _, row := range report.Rows {
				if row.Status == importer.RowFailed {
					red.Fprintf(out, "  line %d (%s): %s\n", row.Line, row.OrderNumber, row.Reason)
				}
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d rows failed", report.Failed)
			}
			return nil
		},
	}
}
