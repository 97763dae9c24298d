package personality

import (
	"math"

	"bandit-trading-engine/internal/types"
)

// Modulator wraps an immutable PersonalityProfile and exposes the
// deterministic transfer functions each estimator applies. It holds no
// other state: identical inputs always produce identical outputs, so
// behavioral diversity comes from profile differences, never from noise.
type Modulator struct {
	profile types.PersonalityProfile
}

func New(profile types.PersonalityProfile) Modulator {
	return Modulator{profile: clampProfile(profile)}
}

func (m Modulator) Profile() types.PersonalityProfile { return m.profile }

// AlphaScale multiplies the linear estimator's exploration coefficient.
// Higher risk tolerance widens the exploration bonus: 0.5x at zero
// tolerance up to 1.5x at full tolerance.
func (m Modulator) AlphaScale() float64 {
	return 0.5 + m.profile.RiskTolerance
}

// AggressionBoost is the multiplicative pre-clamp boost applied to a raw
// confidence value. Neutral aggression (0.5) leaves the value unchanged;
// the full trait range moves it by +/-20%.
func (m Modulator) AggressionBoost() float64 {
	return 1.0 + (m.profile.Aggression-0.5)*0.4
}

// PassCount maps decision speed onto the number of stochastic forward
// passes the neural estimator takes, between 1 and max. Faster profiles
// take fewer passes, trading reported certainty for latency.
func (m Modulator) PassCount(max int) int {
	if max < 1 {
		return 1
	}
	n := max - int(math.Round(m.profile.DecisionSpeed*float64(max-1)))
	if n < 1 {
		n = 1
	}
	return n
}

// VariancePenaltyScale multiplies the variance-aware estimator's penalty
// term. Low risk tolerance punishes variance harder: 1.5x at zero
// tolerance down to 0.5x at full tolerance.
func (m Modulator) VariancePenaltyScale() float64 {
	return 1.5 - m.profile.RiskTolerance
}

// ConfidenceBias is a small additive shift applied inside the calibration
// range, matching the aggression trait's directional lean.
func (m Modulator) ConfidenceBias() float64 {
	return (m.profile.Aggression - 0.5) * 0.05
}

func clampProfile(p types.PersonalityProfile) types.PersonalityProfile {
	return types.PersonalityProfile{
		RiskTolerance: clamp01(p.RiskTolerance),
		DecisionSpeed: clamp01(p.DecisionSpeed),
		Aggression:    clamp01(p.Aggression),
	}
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
