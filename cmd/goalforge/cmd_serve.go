package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goalforge/internal/goalstore"
	"goalforge/internal/server"
)

// serveCmd runs the HTTP API used by the dashboard.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the refinement HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, tel, err := newPipeline()
		if err != nil {
			return err
		}
		defer tel.Close()

		goals, err := goalstore.NewStore(cfg.DataDir)
		if err != nil {
			return err
		}
		defer goals.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(pipeline, goals, tel, logger)
		return srv.Run(ctx, cfg.Server.Addr)
	},
}
