package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/addin-proxy/inference"
	"github.com/telhawk-systems/addin-proxy/internal/server"
	"github.com/telhawk-systems/addin-proxy/telemetry"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve both proxies over HTTP",
		Long: `Starts an HTTP server exposing POST|OPTIONS /inference and /telemetry,
plus /healthz and /metrics. Shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger

	logger.Info("Starting addin-proxy",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"inference_region", cfg.Inference.Region,
	)

	responder := a.responder()
	telemetrySvc := telemetry.New(cfg.Telemetry, responder, logger)
	defer func() {
		if err := telemetrySvc.Close(); err != nil {
			logger.Warn("Failed to close telemetry mirror", "error", err)
		}
	}()

	router := server.NewRouter(server.Routes{
		Inference: inference.NewHandler(cfg.Inference, responder, logger),
		Telemetry: telemetrySvc.Handler,
	}, responder, cfg.Server.MaxBodyBytes)

	return server.New(cfg.Server, router, logger).Run(ctx)
}
