package interfaces

import (
	"context"

	"bandit-trading-engine/internal/types"
)

// FeatureSource supplies one feature vector per decision request.
type FeatureSource interface {
	Next(ctx context.Context) (types.FeatureVector, error)
}

// FeedbackLoop routes realized outcomes to the owning estimator's update
// path, preserving per-estimator arrival order.
type FeedbackLoop interface {
	Apply(outcome types.LearningOutcome) error
}
