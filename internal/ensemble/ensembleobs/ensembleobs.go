package ensembleobs

import (
	"context"
	"time"

	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/trace"
	"bandit-trading-engine/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Step(ctx context.Context, features types.FeatureVector) (*types.EnsembleDecision, error) {
	ctx, span := trace.StartSpan(ctx, "ensemble.Step")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting decision cycle",
		"features", len(features),
	)

	dec, err := oe.engine.Step(ctx, features)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Decision cycle failed", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Decision cycle completed",
		"decision_id", dec.ID,
		"confidence", dec.AggregatedConfidence,
		"disagreement", dec.Disagreement,
		"estimates", len(dec.Estimates),
		"abstained", len(dec.Abstained),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return dec, nil
}
