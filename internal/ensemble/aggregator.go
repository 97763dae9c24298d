package ensemble

import (
	"time"

	"github.com/google/uuid"

	"bandit-trading-engine/internal/types"
)

// floor added to uncertainties before inversion so a zero-uncertainty
// estimate cannot monopolize the weighting
const uncertaintyFloor = 0.05

// Aggregator arbitrates per-estimator estimates into one decision.
// It has no side effects and no state beyond its configured weighting.
type Aggregator struct {
	weighting string // "mean" or "inverse_uncertainty"
}

func NewAggregator(weighting string) *Aggregator {
	return &Aggregator{weighting: weighting}
}

// Aggregate combines the estimates that did not abstain. All estimators
// abstaining is a NoViableEstimateError: the cycle fails and no decision
// is emitted. Fewer than two contributors yields zero disagreement,
// flagged low-confidence.
func (a *Aggregator) Aggregate(estimates []types.ConfidenceEstimate, abstained []string) (*types.EnsembleDecision, error) {
	if len(estimates) == 0 {
		return nil, &types.NoViableEstimateError{Abstained: abstained}
	}

	var weightSum, valueSum float64
	for _, est := range estimates {
		w := 1.0
		if a.weighting == "inverse_uncertainty" {
			w = 1.0 / (est.Uncertainty + uncertaintyFloor)
		}
		weightSum += w
		valueSum += w * est.Value
	}

	dec := &types.EnsembleDecision{
		ID:                   uuid.NewString(),
		Estimates:            append([]types.ConfidenceEstimate(nil), estimates...),
		AggregatedConfidence: valueSum / weightSum,
		Disagreement:         populationVariance(estimates),
		LowConfidence:        len(estimates) < 2,
		Abstained:            append([]string(nil), abstained...),
		Time:                 time.Now().UTC(),
	}
	return dec, nil
}

// populationVariance of the contributing values; the disagreement field
// is defined as exactly this quantity.
func populationVariance(estimates []types.ConfidenceEstimate) float64 {
	if len(estimates) < 2 {
		return 0
	}
	var sum float64
	for _, e := range estimates {
		sum += e.Value
	}
	mean := sum / float64(len(estimates))
	var ss float64
	for _, e := range estimates {
		d := e.Value - mean
		ss += d * d
	}
	return ss / float64(len(estimates))
}
