package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"bandit-trading-engine/internal/api"
	"bandit-trading-engine/internal/cache"
	"bandit-trading-engine/internal/decisionlog"
	"bandit-trading-engine/internal/diversity"
	"bandit-trading-engine/internal/ensemble"
	"bandit-trading-engine/internal/ensemble/ensembleobs"
	"bandit-trading-engine/internal/estimator/linucb"
	"bandit-trading-engine/internal/estimator/neural"
	"bandit-trading-engine/internal/estimator/ucbv"
	"bandit-trading-engine/internal/feedback"
	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/statestore"
	"bandit-trading-engine/internal/store"
	"bandit-trading-engine/internal/trace"
)

// initializeSystem initializes env, logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs compresses old decision log files if retention is configured
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("BANDIT_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := decisionlog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeEstimators builds the three confidence estimators, each with
// its own calibration range and personality profile.
func initializeEstimators(cfg *store.Config) []interfaces.Estimator {
	return []interfaces.Estimator{
		linucb.New(linucb.Params{
			Dim:         cfg.FeatureDimension,
			Alpha:       cfg.ExplorationAlpha,
			Calibration: cfg.Calibration.LinUCB,
			Profile:     cfg.Profiles.LinUCB,
		}),
		neural.New(neural.Params{
			Dim:          cfg.FeatureDimension,
			HiddenSizes:  cfg.Neural.HiddenSizes,
			LearningRate: cfg.LearningRate,
			MaxPasses:    cfg.Neural.MaxPasses,
			Seed:         cfg.Neural.Seed,
			Calibration:  cfg.Calibration.Neural,
			Profile:      cfg.Profiles.Neural,
		}),
		ucbv.New(ucbv.Params{
			Dim:         cfg.FeatureDimension,
			Zeta:        cfg.Zeta,
			Calibration: cfg.Calibration.UCBV,
			Profile:     cfg.Profiles.UCBV,
		}),
	}
}

// initializeCache selects the decision cache backend. Redis failures fall
// back to the in-memory cache so a missing sidecar never stops decisions.
func initializeCache(ctx context.Context, cfg *store.Config) interfaces.Cache {
	if cfg.Cache.Backend == "redis" {
		r := cache.NewRedis(cfg.Cache.Addr)
		if err := r.Ping(ctx); err != nil {
			logger.Warn(ctx, "Redis unreachable, falling back to in-memory cache", "addr", cfg.Cache.Addr, "error", err)
			return cache.NewMemory()
		}
		logger.Info(ctx, "Using redis decision cache", "addr", cfg.Cache.Addr)
		return r
	}
	return cache.NewMemory()
}

// initializeEngine assembles the ensemble engine with observability
func initializeEngine(cfg *store.Config, estimators []interfaces.Estimator, c interfaces.Cache) (interfaces.Engine, *ensemble.Engine) {
	meanWidth := (cfg.Calibration.LinUCB.Width() + cfg.Calibration.Neural.Width() + cfg.Calibration.UCBV.Width()) / 3
	validator := diversity.NewValidator(cfg.Diversity.Window, cfg.Diversity.Threshold, meanWidth)

	eng := ensemble.New(cfg, estimators, validator, c)

	return ensembleobs.Wrap(eng), eng
}

// restoreState loads persisted estimator snapshots if a state path is set.
// Returns nil when persistence is disabled.
func restoreState(ctx context.Context, cfg *store.Config, estimators []interfaces.Estimator) *statestore.Store {
	if cfg.State.Path == "" {
		return nil
	}

	st, err := statestore.Open(cfg.State.Path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open state store, running without persistence", err, "path", cfg.State.Path)
		return nil
	}
	if err := st.Load(ctx, estimators); err != nil {
		logger.ErrorWithErr(ctx, "Failed to restore estimator state", err)
	}
	return st
}

// initializeOutcomeIntake starts the NATS outcome subscription when enabled.
func initializeOutcomeIntake(ctx context.Context, cfg *store.Config, loop *feedback.Loop) *feedback.NATSIntake {
	if !cfg.NATS.Enabled {
		return nil
	}

	intake, err := feedback.NewNATSIntake(cfg.NATS.URL, cfg.NATS.Subject, loop)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to connect outcome intake, continuing without it", err, "url", cfg.NATS.URL)
		return nil
	}
	logger.Info(ctx, "Outcome intake subscribed", "subject", cfg.NATS.Subject)
	return intake
}

// startAPI launches the HTTP surface when enabled.
func startAPI(ctx context.Context, cfg *store.Config, eng interfaces.Engine, base *ensemble.Engine, loop *feedback.Loop, estimators []interfaces.Estimator) {
	if !cfg.API.Enabled {
		return
	}

	srv := api.NewServer(eng, loop, base.Diversity, estimators)
	go func() {
		if err := srv.Run(cfg.API.Listen); err != nil {
			logger.ErrorWithErr(ctx, "API server stopped", err)
		}
	}()
}
