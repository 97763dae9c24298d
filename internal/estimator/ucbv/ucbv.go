// Package ucbv implements the variance-aware confidence estimator.
// Rewards are bucketed by market regime; each bucket keeps a running
// mean and variance maintained with Welford's single-pass algorithm, so
// no historical samples are ever retained. The confidence combines the
// bucket mean with a variance-scaled penalty in the style of a
// value-at-risk adjustment: high variance or thin samples widen the
// bound and drag the value down.
package ucbv

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/personality"
	"bandit-trading-engine/internal/types"
)

const AlgorithmID = "ucbv"

// fraction of the calibration range a never-sampled bucket reports
const coldStartFraction = 0.35

type Params struct {
	Dim         int
	Zeta        float64 // variance weight in the exploration term
	Calibration types.CalibrationRange
	Profile     types.PersonalityProfile
}

type bucket struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	M2   float64 `json:"m2"`
}

func (b *bucket) variance() float64 {
	if b.N < 2 {
		return 0
	}
	return b.M2 / float64(b.N)
}

type Estimator struct {
	mu sync.RWMutex

	dim  int
	zeta float64
	rng  types.CalibrationRange
	mod  personality.Modulator

	buckets map[types.Regime]*bucket
	total   int
}

func New(p Params) *Estimator {
	if p.Zeta <= 0 {
		p.Zeta = 1.2
	}
	return &Estimator{
		dim:     p.Dim,
		zeta:    p.Zeta,
		rng:     p.Calibration,
		mod:     personality.New(p.Profile),
		buckets: map[types.Regime]*bucket{},
	}
}

func (e *Estimator) ID() string { return AlgorithmID }

func (e *Estimator) Estimate(ctx context.Context, features types.FeatureVector) (types.ConfidenceEstimate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	regime := types.DetectRegime(features)
	b := e.buckets[regime]

	if b == nil || b.N == 0 {
		raw := e.rng.FromFraction(coldStartFraction) * e.mod.AggressionBoost()
		value, clamped := e.rng.Clamp(raw)
		if clamped {
			logger.Bounds(ctx, types.BoundsViolation{AlgorithmID: AlgorithmID, Raw: raw, Range: e.rng})
		}
		return types.ConfidenceEstimate{
			AlgorithmID: AlgorithmID,
			Value:       value,
			LowerBound:  e.rng.Min,
			UpperBound:  e.rng.Max,
			Uncertainty: 1.0,
		}, nil
	}

	n := float64(b.N)
	logTotal := math.Log(float64(e.total) + 1)
	variance := b.variance()

	penalty := e.mod.VariancePenaltyScale() * math.Sqrt(e.zeta*variance*logTotal/n)
	exploration := math.Sqrt(2 * logTotal / n)

	frac := clamp01(0.5 + 0.4*b.Mean - penalty)
	raw := e.rng.FromFraction(frac) * e.mod.AggressionBoost()
	value, clamped := e.rng.Clamp(raw)
	if clamped {
		logger.Bounds(ctx, types.BoundsViolation{AlgorithmID: AlgorithmID, Raw: raw, Range: e.rng})
	}

	uncertainty := math.Sqrt(variance/n) + 1/math.Sqrt(n)
	half := math.Min(1, penalty+exploration) * e.rng.Width() * 0.5
	lower, _ := e.rng.Clamp(value - half)
	upper, _ := e.rng.Clamp(value + half)

	return types.ConfidenceEstimate{
		AlgorithmID: AlgorithmID,
		Value:       value,
		LowerBound:  lower,
		UpperBound:  upper,
		Uncertainty: uncertainty,
	}, nil
}

// Update folds one reward into the owning regime bucket via Welford's
// online mean/variance step.
func (e *Estimator) Update(outcome types.LearningOutcome) error {
	if err := outcome.Features.Validate(e.dim); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	regime := types.DetectRegime(outcome.Features)
	b := e.buckets[regime]
	if b == nil {
		b = &bucket{}
		e.buckets[regime] = b
	}

	r := outcome.RealizedReward
	b.N++
	d := r - b.Mean
	b.Mean += d / float64(b.N)
	b.M2 += d * (r - b.Mean)

	e.total++
	return nil
}

type snapshot struct {
	Buckets map[types.Regime]*bucket `json:"buckets"`
	Total   int                      `json:"total"`
}

func (e *Estimator) Snapshot() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return json.Marshal(snapshot{Buckets: e.buckets, Total: e.total})
}

func (e *Estimator) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buckets = s.Buckets
	if e.buckets == nil {
		e.buckets = map[types.Regime]*bucket{}
	}
	e.total = s.Total
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
