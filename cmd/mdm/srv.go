package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"mdm/internal/auth"
	"mdm/internal/config"
	"mdm/internal/ingest"
	"mdm/internal/metrics"
	"mdm/internal/server"
	"mdm/internal/storage"
	"mdm/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the ingest API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.ListenHost, cfg.Port)
			if err != nil {
				return err
			}

			verifier, err := auth.NewKeyVerifier(cfg.APIKey, cfg.APIKeyHash)
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				logger.Warn("no api_key or api_key_hash configured; /ingest accepts unauthenticated requests")
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open metadata store: %w", err)
			}
			defer st.Close()

			logger.Info("opening storage", "hot_root", cfg.HotRoot, "cold_root", cfg.ColdRoot)
			backend, err := storage.NewLocalFS(cfg.HotRoot, cfg.ColdRoot)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			recorder := metrics.NewProm(reg)

			svc := ingest.NewService(backend, st, logger.With("component", "ingest"), recorder)
			srv := server.New(addr, svc, server.Options{
				Verifier:      verifier,
				Metrics:       recorder.Handler(),
				MaxBodyBytes:  cfg.Ingest.MaxBodyBytes,
				MaxConcurrent: cfg.Ingest.MaxConcurrent,
				Logger:        logger,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}
