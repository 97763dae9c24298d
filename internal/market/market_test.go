package market

import (
	"context"
	"testing"

	"bandit-trading-engine/internal/types"
)

func TestSyntheticSourceDimension(t *testing.T) {
	s := NewSyntheticSource(15)
	f, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.Validate(15); err != nil {
		t.Fatalf("synthetic vector must be valid: %v", err)
	}
}

func TestSyntheticSourceCyclesRegimes(t *testing.T) {
	s := NewSyntheticSource(15)
	seen := map[types.Regime]bool{}

	// One full cycle covers every regime.
	for i := 0; i < 40; i++ {
		f, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("next %d failed: %v", i, err)
		}
		seen[types.DetectRegime(f)] = true
	}

	for _, r := range types.Regimes() {
		if !seen[r] {
			t.Errorf("regime %s never produced in a full cycle", r)
		}
	}
}

func TestSyntheticSourceHonorsContext(t *testing.T) {
	s := NewSyntheticSource(15)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Next(ctx); err == nil {
		t.Error("cancelled context must stop the feed")
	}
}
