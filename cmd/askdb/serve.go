package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"askdb/internal/api"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, cfg, logger, err := buildPipeline()
			if err != nil {
				return err
			}
			defer logger.Sync()

			srv := api.NewServer(pipe, logger)

			// oracle calls can be slow; the write timeout must outlast one
			// full request including its correction loop
			httpServer := &http.Server{
				Addr:         cfg.ListenAddr,
				Handler:      srv.Routes(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: cfg.OracleTimeout() + 30*time.Second,
				IdleTimeout:  60 * time.Second,
			}

			logger.Info("server starting", zap.String("addr", cfg.ListenAddr))
			return httpServer.ListenAndServe()
		},
	}
}
