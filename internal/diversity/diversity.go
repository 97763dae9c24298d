// Package diversity monitors behavioral variance across recent ensemble
// decisions. A violation is advisory: it is reported to monitoring and
// never blocks decision emission.
package diversity

import (
	"math"
	"sync"
	"time"

	"bandit-trading-engine/internal/types"
)

// Decisions observed before the validator is willing to flag a violation.
const minSamples = 5

// Report is the outcome of one diversity check. Score is the square root
// of the mean disagreement normalized by the mean calibration width, so
// the threshold is comparable across algorithms with different ranges.
type Report struct {
	Window           int       `json:"window"`
	MeanDisagreement float64   `json:"mean_disagreement"`
	Score            float64   `json:"score"`
	Threshold        float64   `json:"threshold"`
	Violation        bool      `json:"violation"`
	Time             time.Time `json:"time"`
}

// Evaluate checks an externally supplied window of decisions against the
// minimum diversity threshold. meanWidth is the mean calibration-range
// width of the contributing algorithms.
func Evaluate(decisions []types.EnsembleDecision, threshold, meanWidth float64) Report {
	report := Report{
		Window:    len(decisions),
		Threshold: threshold,
		Time:      time.Now().UTC(),
	}
	if len(decisions) == 0 || meanWidth <= 0 {
		return report
	}

	var sum float64
	for _, d := range decisions {
		sum += d.Disagreement
	}
	report.MeanDisagreement = sum / float64(len(decisions))
	report.Score = math.Sqrt(report.MeanDisagreement) / meanWidth
	report.Violation = len(decisions) >= minSamples && report.Score < threshold
	return report
}

// Validator keeps the rolling window for continuous monitoring.
type Validator struct {
	mu        sync.Mutex
	size      int
	threshold float64
	meanWidth float64
	window    []types.EnsembleDecision
}

func NewValidator(windowSize int, threshold, meanWidth float64) *Validator {
	if windowSize < 1 {
		windowSize = 1
	}
	return &Validator{
		size:      windowSize,
		threshold: threshold,
		meanWidth: meanWidth,
		window:    make([]types.EnsembleDecision, 0, windowSize),
	}
}

func (v *Validator) Observe(dec *types.EnsembleDecision) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.window = append(v.window, *dec)
	if len(v.window) > v.size {
		v.window = v.window[1:]
	}
}

func (v *Validator) Check() Report {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Evaluate(v.window, v.threshold, v.meanWidth)
}
