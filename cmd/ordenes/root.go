package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ordenes",
		Short:         "Maintenance work-order backend",
		Long:          "Backend for plant maintenance work orders: API server, planning-export import, historical export and audit verification.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newVerifyCmd())
	return cmd
}
