package main

import (
	"fmt"

	"ordenes-backend/internal/audit"
	"ordenes-backend/internal/config"
	"ordenes-backend/internal/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Cross-check stored accumulators against the audit trail",
		Long:  "Replays every finished activity's event sequence and flags activities whose stored active/pause totals diverge from it. Activities closed with a client override are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			database.Init(cfg.DBDriver, cfg.DBDSN)

			divs, err := audit.Verify(database.DB)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(divs) == 0 {
				color.New(color.FgGreen).Fprintln(out, "all accumulators consistent with the audit trail")
				return nil
			}
			red := color.New(color.FgRed)
			for _, d := range divs {
				red.Fprintf(out, "%s\n", d)
			}
			return fmt.Errorf("%d divergences found", len(divs))
		},
	}
}
