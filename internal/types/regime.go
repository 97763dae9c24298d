package types

// Regime is the coarse market-condition bucket derived deterministically
// from a feature vector. It keys the variance-aware estimator's state and
// the linear estimator's per-regime performance tracking.
type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeRangeBound   Regime = "range_bound"
)

// Regimes lists every bucket in stable order.
func Regimes() []Regime {
	return []Regime{RegimeTrendingUp, RegimeTrendingDown, RegimeRangeBound}
}

// DetectRegime classifies a feature vector by its sentiment and momentum
// components. Vectors too short to carry those features are range-bound.
func DetectRegime(f FeatureVector) Regime {
	if len(f) <= FeatMomentum {
		return RegimeRangeBound
	}
	sentiment := f[FeatSentiment]
	momentum := f[FeatMomentum]
	switch {
	case sentiment > 0.3 && momentum > 0.01:
		return RegimeTrendingUp
	case sentiment < -0.3 && momentum < -0.01:
		return RegimeTrendingDown
	default:
		return RegimeRangeBound
	}
}
