package main

import (
	"fmt"
	"log"

	"ordenes-backend/internal/config"
	"ordenes-backend/internal/database"
	"ordenes-backend/internal/server"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.SessionSecret == "" {
				return fmt.Errorf("SESSION_SECRET is not set")
			}
			database.Init(cfg.DBDriver, cfg.DBDSN)

			r, err := server.NewRouter(cfg)
			if err != nil {
				return err
			}

			addr := fmt.Sprintf(":%s", cfg.ServerPort)
			log.Printf("starting server on %s", addr)
			return r.Run(addr)
		},
	}
}
