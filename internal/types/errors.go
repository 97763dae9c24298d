package types

import "fmt"

// InvalidFeatureError rejects a malformed feature vector before any
// estimator is invoked. The decision cycle for that request is aborted.
type InvalidFeatureError struct {
	Index     int // -1 when the whole vector is wrong (length)
	Reason    string
	Got, Want int
}

func (e *InvalidFeatureError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid feature vector: %s (got %d, want %d)", e.Reason, e.Got, e.Want)
	}
	return fmt.Sprintf("invalid feature vector: %s at index %d", e.Reason, e.Index)
}

// NumericInstabilityError signals an ill-conditioned covariance in the
// linear estimator. The estimator abstains for the cycle with state
// unmodified.
type NumericInstabilityError struct {
	AlgorithmID string
	Detail      string
}

func (e *NumericInstabilityError) Error() string {
	return fmt.Sprintf("%s: numeric instability: %s", e.AlgorithmID, e.Detail)
}

// DivergentGradientError signals a non-finite gradient during a neural
// update. State is left unmodified; the error is surfaced, not retried.
type DivergentGradientError struct {
	AlgorithmID string
	Layer       int
}

func (e *DivergentGradientError) Error() string {
	return fmt.Sprintf("%s: divergent gradient in layer %d", e.AlgorithmID, e.Layer)
}

// NoViableEstimateError means every estimator abstained and no decision
// can be emitted for the cycle.
type NoViableEstimateError struct {
	Abstained []string
}

func (e *NoViableEstimateError) Error() string {
	return fmt.Sprintf("no viable estimate: all %d estimators abstained", len(e.Abstained))
}

// UnknownAlgorithmError is returned when a LearningOutcome names an
// estimator the feedback loop does not own.
type UnknownAlgorithmError struct {
	AlgorithmID string
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("unknown algorithm id %q", e.AlgorithmID)
}

// BoundsViolation records a raw value that fell outside its calibration
// range. It is recoverable: the value is clamped and the incident logged,
// never turned into an abstention.
type BoundsViolation struct {
	AlgorithmID string
	Raw         float64
	Range       CalibrationRange
}

func (v BoundsViolation) String() string {
	return fmt.Sprintf("%s: raw value %.4f outside [%.2f, %.2f]", v.AlgorithmID, v.Raw, v.Range.Min, v.Range.Max)
}
