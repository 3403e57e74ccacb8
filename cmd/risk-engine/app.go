package main

import (
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/integrityos/risk-engine/internal/cache"
	"github.com/integrityos/risk-engine/internal/classifier"
	"github.com/integrityos/risk-engine/internal/config"
	"github.com/integrityos/risk-engine/internal/engine"
	"github.com/integrityos/risk-engine/internal/features"
	"github.com/integrityos/risk-engine/internal/models"
	"github.com/integrityos/risk-engine/internal/repo"
	"github.com/integrityos/risk-engine/internal/services"
)

type app struct {
	engine  *engine.Engine
	service *services.RiskService
}

// newApp wires the classifier, engine, dataset store and service. The provider
// backs model persistence; pass cache.NoopProvider{} to disable it.
func newApp(cfg *config.Config, provider cache.Provider, logger *slog.Logger) *app {
	cls := classifier.New(cfg.Classifier, features.NewBuilder(cfg.Features), logger)

	var opts []engine.Option
	if cfg.Cache.ForecastMemo > 0 {
		opts = append(opts, engine.WithMemo(expirable.NewLRU[string, models.ObjectAssessment](cfg.Cache.ForecastMemo, nil, cfg.Cache.ForecastMemoTTL)))
	}
	eng := engine.New(cls, cfg.Engine, logger, opts...)

	snapshots := classifier.NewSnapshotStore(provider, cfg.Cache.ModelKey, cfg.Cache.ModelTTL)
	svc := services.NewRiskService(logger, repo.NewStore(), cls, eng, snapshots)
	return &app{engine: eng, service: svc}
}

// newProvider returns the Redis provider when it is configured and reachable.
// Otherwise snapshots live in process memory for the lifetime of the server.
func newProvider(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if cfg.Enabled && cfg.Addr != "" {
		p, err := cache.NewRedisProvider(cfg.Redis())
		if err == nil {
			return p
		}
		logger.Warn("redis cache unavailable, keeping model snapshots in memory", slog.Any("error", err))
	}
	return cache.NewMemoryProvider(memorySnapshots, cfg.ModelTTL)
}

// memorySnapshots bounds the in-process provider; only the current model key is written.
const memorySnapshots = 4
