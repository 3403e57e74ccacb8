package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/integrityos/risk-engine/internal/api"
	"github.com/integrityos/risk-engine/internal/config"
	"github.com/integrityos/risk-engine/internal/metrics"
	"github.com/integrityos/risk-engine/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC risk engine and the metrics side port",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON, os.Stderr)
	logger.Info("starting risk-engine", slog.String("address", cfg.Server.Address), slog.String("version", version))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	provider := newProvider(cfg.Cache, logger)
	defer provider.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := newApp(cfg, provider, logger)
	if err := rt.service.RestoreModel(ctx); err != nil {
		logger.Warn("persisted model not restored, serving rule fallback", slog.Any("error", err))
	}

	server, err := api.NewServer(cfg.Server, rt.service)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	path := configPath
	if path == "" {
		path = os.Getenv("RISK_ENGINE_CONFIG")
	}
	if path != "" {
		go func() {
			err := config.Watch(ctx, path, logger, func(next *config.Config) {
				rt.engine.SetSettings(next.Engine)
				logger.Info("engine settings reloaded", slog.Int("top_risks", next.Engine.TopRisks))
			})
			if err != nil {
				logger.Warn("config watcher stopped", slog.Any("error", err))
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      api.NewHTTPHandler(promhttp.Handler(), server.Serving),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("risk-engine stopped")
	return nil
}
