package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bandit-trading-engine/internal/feedback"
	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/market"
	"bandit-trading-engine/internal/statestore"
	"bandit-trading-engine/internal/trace"
	"bandit-trading-engine/internal/types"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	must(err)

	compressOldLogs(ctx)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - outcomes come from the synthetic feed")
	}

	estimators := initializeEstimators(cfg)
	st := restoreState(ctx, cfg, estimators)

	loop := feedback.New(estimators, 0)
	intake := initializeOutcomeIntake(ctx, cfg, loop)

	decCache := initializeCache(ctx, cfg)
	eng, base := initializeEngine(cfg, estimators, decCache)

	startAPI(ctx, cfg, eng, base, loop, estimators)

	var source interfaces.FeatureSource = market.NewSyntheticSource(cfg.FeatureDimension)

	tick := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer tick.Stop()

	logger.Info(ctx, "Decision engine started", "mode", cfg.Mode, "poll_seconds", cfg.PollSeconds)
	for {
		select {
		case <-tick.C:
			features, err := source.Next(ctx)
			if err != nil {
				continue
			}

			dec, err := eng.Step(ctx, features)
			if err != nil {
				logger.ErrorWithErr(ctx, "Step failed", err)
				continue
			}

			b, _ := json.Marshal(dec)
			fmt.Println(string(b))

			if cfg.Mode == "DRY_RUN" && len(dec.Estimates) > 0 {
				feedOutcomes(ctx, loop, dec, features)
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down...")
			shutdown(ctx, loop, intake, st, estimators)
			return
		case <-ctx.Done():
			shutdown(ctx, loop, intake, st, estimators)
			return
		}
	}
}

// feedOutcomes synthesizes a realized reward from the sentiment signal so
// dry runs exercise the learning path end to end.
func feedOutcomes(ctx context.Context, loop *feedback.Loop, dec *types.EnsembleDecision, features types.FeatureVector) {
	reward := features[types.FeatSentiment]
	for _, est := range dec.Estimates {
		out := types.LearningOutcome{
			AlgorithmID:    est.AlgorithmID,
			RealizedReward: reward,
			ContextRef:     dec.ID,
			Features:       features.Clone(),
		}
		if err := loop.Apply(out); err != nil {
			logger.Warn(ctx, "Failed to queue outcome", "algorithm_id", est.AlgorithmID, "error", err)
		}
	}
}

// shutdown drains the feedback queues before snapshotting so persisted
// state reflects every accepted outcome.
func shutdown(ctx context.Context, loop *feedback.Loop, intake *feedback.NATSIntake, st *statestore.Store, estimators []interfaces.Estimator) {
	if intake != nil {
		intake.Close()
	}
	loop.Close()

	if st != nil {
		if err := st.Save(ctx, estimators); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist estimator state", err)
		}
		_ = st.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(shutdownCtx)
}
