package interfaces

import (
	"context"

	"bandit-trading-engine/internal/types"
)

type Engine interface {
	Step(ctx context.Context, features types.FeatureVector) (*types.EnsembleDecision, error)
}
