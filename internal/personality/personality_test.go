package personality

import (
	"math"
	"testing"

	"bandit-trading-engine/internal/types"
)

func TestNeutralProfileIsIdentity(t *testing.T) {
	m := New(types.DefaultProfile())

	if got := m.AlphaScale(); got != 1.0 {
		t.Errorf("neutral AlphaScale should be 1.0, got %.3f", got)
	}
	if got := m.AggressionBoost(); got != 1.0 {
		t.Errorf("neutral AggressionBoost should be 1.0, got %.3f", got)
	}
	if got := m.VariancePenaltyScale(); got != 1.0 {
		t.Errorf("neutral VariancePenaltyScale should be 1.0, got %.3f", got)
	}
	if got := m.ConfidenceBias(); got != 0.0 {
		t.Errorf("neutral ConfidenceBias should be 0, got %.3f", got)
	}
}

func TestTransferFunctionExtremes(t *testing.T) {
	timid := New(types.PersonalityProfile{RiskTolerance: 0, DecisionSpeed: 0, Aggression: 0})
	bold := New(types.PersonalityProfile{RiskTolerance: 1, DecisionSpeed: 1, Aggression: 1})

	if got := timid.AlphaScale(); got != 0.5 {
		t.Errorf("zero risk tolerance AlphaScale: want 0.5, got %.3f", got)
	}
	if got := bold.AlphaScale(); got != 1.5 {
		t.Errorf("full risk tolerance AlphaScale: want 1.5, got %.3f", got)
	}

	if got := timid.AggressionBoost(); math.Abs(got-0.8) > 1e-12 {
		t.Errorf("zero aggression boost: want 0.8, got %.3f", got)
	}
	if got := bold.AggressionBoost(); math.Abs(got-1.2) > 1e-12 {
		t.Errorf("full aggression boost: want 1.2, got %.3f", got)
	}

	if got := timid.VariancePenaltyScale(); got != 1.5 {
		t.Errorf("zero risk tolerance penalty scale: want 1.5, got %.3f", got)
	}
	if got := bold.VariancePenaltyScale(); got != 0.5 {
		t.Errorf("full risk tolerance penalty scale: want 0.5, got %.3f", got)
	}
}

func TestPassCount(t *testing.T) {
	cases := []struct {
		speed float64
		max   int
		want  int
	}{
		{0.0, 8, 8}, // slowest profile takes every pass
		{1.0, 8, 1}, // fastest takes exactly one
		{0.5, 8, 4}, // round(0.5*7)=4 passes skipped
		{0.5, 1, 1},
		{0.0, 0, 1}, // degenerate budget still yields one pass
	}

	for _, tc := range cases {
		m := New(types.PersonalityProfile{RiskTolerance: 0.5, DecisionSpeed: tc.speed, Aggression: 0.5})
		if got := m.PassCount(tc.max); got != tc.want {
			t.Errorf("PassCount(speed=%.1f, max=%d): want %d, got %d", tc.speed, tc.max, tc.want, got)
		}
	}
}

func TestProfileClampedOnConstruction(t *testing.T) {
	m := New(types.PersonalityProfile{RiskTolerance: 3.0, DecisionSpeed: -1.0, Aggression: 1.5})
	p := m.Profile()
	if p.RiskTolerance != 1.0 || p.DecisionSpeed != 0.0 || p.Aggression != 1.0 {
		t.Errorf("out-of-range traits must be clamped, got %+v", p)
	}
}

func TestDeterminism(t *testing.T) {
	p := types.PersonalityProfile{RiskTolerance: 0.3, DecisionSpeed: 0.7, Aggression: 0.6}
	a, b := New(p), New(p)
	if a.AlphaScale() != b.AlphaScale() || a.AggressionBoost() != b.AggressionBoost() ||
		a.PassCount(8) != b.PassCount(8) || a.VariancePenaltyScale() != b.VariancePenaltyScale() {
		t.Error("identical profiles must produce identical modulation")
	}
}
