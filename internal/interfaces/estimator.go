package interfaces

import (
	"context"

	"bandit-trading-engine/internal/types"
)

// Estimator is one confidence algorithm in the ensemble. Each instance
// owns its internal state exclusively: Update is the only mutator, and
// nothing outside the instance ever reads or writes that state.
type Estimator interface {
	// ID is the stable algorithm identifier used for outcome routing.
	ID() string

	// Estimate maps a validated feature vector to a bounded confidence
	// estimate. A returned error is an abstention for the cycle.
	Estimate(ctx context.Context, features types.FeatureVector) (types.ConfidenceEstimate, error)

	// Update applies one realized outcome to internal state.
	Update(outcome types.LearningOutcome) error

	// Snapshot and Restore expose state as an opaque blob for external
	// persistence. They never share live structures.
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}
