// Package market produces feature vectors for the decision loop. The
// synthetic source generates a deterministic regime cycle so DRY_RUN
// sessions exercise all three market regimes without a live feed.
package market

import (
	"context"
	"math"
	"sync"

	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/types"
)

// SyntheticSource produces a repeating sweep through trending-up,
// range-bound and trending-down conditions. Deterministic for a given
// tick count.
type SyntheticSource struct {
	mu   sync.Mutex
	dim  int
	tick int
}

var _ interfaces.FeatureSource = (*SyntheticSource)(nil)

func NewSyntheticSource(dim int) *SyntheticSource {
	return &SyntheticSource{dim: dim}
}

func (s *SyntheticSource) Next(ctx context.Context) (types.FeatureVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	t := s.tick
	s.tick++
	s.mu.Unlock()

	phase := float64(t) * 2 * math.Pi / 40 // full regime cycle every 40 ticks
	f := make(types.FeatureVector, s.dim)

	f[types.FeatSentiment] = 0.6 * math.Sin(phase)
	f[types.FeatMomentum] = 0.03 * math.Sin(phase)
	f[types.FeatVolatility] = 0.2 + 0.1*math.Abs(math.Cos(phase))

	for i := range f {
		if f[i] != 0 {
			continue
		}
		f[i] = 0.1 * math.Sin(phase+float64(i))
	}

	return f, nil
}
