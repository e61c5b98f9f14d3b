package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ordenes-backend/internal/config"
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the report of finished orders",
		Long:  "Writes the read-only report over FINISHED orders' activities. The output format follows the file extension (.csv or .xlsx).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			database.Init(cfg.DBDriver, cfg.DBDSN)

			rows, err := export.Rows(database.DB)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			switch strings.ToLower(filepath.Ext(out)) {
			case ".xlsx":
				err = export.WriteXLSX(f, rows)
			case ".csv":
				err = export.WriteCSV(f, rows)
			default:
				return fmt.Errorf("unsupported file type %q: want .xlsx or .csv", filepath.Ext(out))
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", len(rows), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "ordenes_finalizadas.csv", "output file (.csv or .xlsx)")
	return cmd
}
