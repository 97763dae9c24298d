package types

import (
	"math"
	"time"
)

// FeatureVector is the ordered market feature set for one opportunity.
// Length is fixed per deployment (feature_dimension in config).
type FeatureVector []float64

// Feature positions used for regime detection. The upstream feature
// pipeline guarantees this layout for the default 15-dimension vector.
const (
	FeatSentiment  = 0
	FeatMomentum   = 6
	FeatVolatility = 7
)

// Validate rejects malformed vectors before any estimator sees them.
func (f FeatureVector) Validate(dim int) error {
	if len(f) != dim {
		return &InvalidFeatureError{Index: -1, Reason: "wrong length", Got: len(f), Want: dim}
	}
	for i, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InvalidFeatureError{Index: i, Reason: "non-finite value"}
		}
	}
	return nil
}

// Clone returns an independent copy so estimator state never aliases
// caller-owned slices.
func (f FeatureVector) Clone() FeatureVector {
	c := make(FeatureVector, len(f))
	copy(c, f)
	return c
}

// PersonalityProfile holds the behavioral modulation parameters for one
// estimator instance. All three scalars live in [0,1]. Profiles are
// immutable once an estimator is constructed; behavioral variants are
// never expressed as string labels.
type PersonalityProfile struct {
	RiskTolerance float64 `yaml:"risk_tolerance" json:"risk_tolerance"`
	DecisionSpeed float64 `yaml:"decision_speed" json:"decision_speed"`
	Aggression    float64 `yaml:"aggression" json:"aggression"`
}

// DefaultProfile is the neutral midpoint profile.
func DefaultProfile() PersonalityProfile {
	return PersonalityProfile{RiskTolerance: 0.5, DecisionSpeed: 0.5, Aggression: 0.5}
}

// CalibrationRange is the fixed interval an algorithm's output is clamped to.
type CalibrationRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

func (r CalibrationRange) Width() float64 { return r.Max - r.Min }

// Clamp forces v into the range and reports whether clamping was needed.
func (r CalibrationRange) Clamp(v float64) (float64, bool) {
	if v < r.Min {
		return r.Min, true
	}
	if v > r.Max {
		return r.Max, true
	}
	return v, false
}

// FromFraction maps a [0,1] fraction onto the range.
func (r CalibrationRange) FromFraction(frac float64) float64 {
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	return r.Min + r.Width()*frac
}

// ConfidenceEstimate is one estimator's output for a cycle.
// Invariant: LowerBound <= Value <= UpperBound, all inside the
// algorithm's calibration range.
type ConfidenceEstimate struct {
	AlgorithmID string  `json:"algorithm_id"`
	Value       float64 `json:"value"`
	LowerBound  float64 `json:"lower_bound"`
	UpperBound  float64 `json:"upper_bound"`
	Uncertainty float64 `json:"uncertainty"`
}

// EnsembleDecision is the arbitrated result of one decision cycle.
// The record is immutable once built: Disagreement is computed exactly
// once by the aggregator and never revised.
type EnsembleDecision struct {
	ID                   string               `json:"id"`
	Estimates            []ConfidenceEstimate `json:"estimates"`
	AggregatedConfidence float64              `json:"aggregated_confidence"`
	Disagreement         float64              `json:"disagreement"`
	LowConfidence        bool                 `json:"low_confidence"`
	Abstained            []string             `json:"abstained,omitempty"`
	Time                 time.Time            `json:"time"`
}

// LearningOutcome carries a realized reward back to the owning estimator.
// ContextRef is the ID of the originating decision. Each outcome is
// consumed exactly once by that estimator's update path.
type LearningOutcome struct {
	AlgorithmID    string        `json:"algorithm_id"`
	RealizedReward float64       `json:"realized_reward"`
	ContextRef     string        `json:"context_ref"`
	Features       FeatureVector `json:"features"`
}
