package types

import (
	"errors"
	"math"
	"testing"
)

func TestFeatureVectorValidate(t *testing.T) {
	f := make(FeatureVector, 15)
	if err := f.Validate(15); err != nil {
		t.Fatalf("expected valid vector, got %v", err)
	}

	// Wrong length
	err := f.Validate(10)
	var inv *InvalidFeatureError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidFeatureError, got %v", err)
	}
	if inv.Index != -1 {
		t.Errorf("length error should report index -1, got %d", inv.Index)
	}

	// NaN entry
	f[3] = math.NaN()
	err = f.Validate(15)
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidFeatureError for NaN, got %v", err)
	}
	if inv.Index != 3 {
		t.Errorf("expected offending index 3, got %d", inv.Index)
	}

	// Inf entry
	f[3] = 0
	f[7] = math.Inf(1)
	if err := f.Validate(15); err == nil {
		t.Error("expected error for Inf entry")
	}
}

func TestFeatureVectorClone(t *testing.T) {
	f := FeatureVector{1, 2, 3}
	c := f.Clone()
	c[0] = 99
	if f[0] != 1 {
		t.Error("clone must not alias the original")
	}
}

func TestCalibrationRangeClamp(t *testing.T) {
	r := CalibrationRange{Min: 0.45, Max: 0.90}

	if v, clamped := r.Clamp(0.7); v != 0.7 || clamped {
		t.Errorf("in-range value must pass through, got %.2f clamped=%v", v, clamped)
	}
	if v, clamped := r.Clamp(1.2); v != 0.90 || !clamped {
		t.Errorf("expected clamp to max, got %.2f clamped=%v", v, clamped)
	}
	if v, clamped := r.Clamp(0.1); v != 0.45 || !clamped {
		t.Errorf("expected clamp to min, got %.2f clamped=%v", v, clamped)
	}
}

func TestCalibrationRangeFromFraction(t *testing.T) {
	r := CalibrationRange{Min: 0.40, Max: 0.85}

	if got := r.FromFraction(0); got != 0.40 {
		t.Errorf("fraction 0 should map to min, got %.3f", got)
	}
	if got := r.FromFraction(1); got != 0.85 {
		t.Errorf("fraction 1 should map to max, got %.3f", got)
	}
	// Out-of-range fractions saturate
	if got := r.FromFraction(2.5); got != 0.85 {
		t.Errorf("oversized fraction should saturate at max, got %.3f", got)
	}
	if got := r.FromFraction(-1); got != 0.40 {
		t.Errorf("negative fraction should saturate at min, got %.3f", got)
	}
}

func TestDetectRegime(t *testing.T) {
	cases := []struct {
		name      string
		sentiment float64
		momentum  float64
		want      Regime
	}{
		{"strong bull", 0.5, 0.02, RegimeTrendingUp},
		{"strong bear", -0.5, -0.02, RegimeTrendingDown},
		{"neutral", 0.0, 0.0, RegimeRangeBound},
		{"sentiment without momentum", 0.5, 0.0, RegimeRangeBound},
		{"momentum without sentiment", 0.0, 0.05, RegimeRangeBound},
		{"boundary is range-bound", 0.3, 0.01, RegimeRangeBound},
	}

	for _, tc := range cases {
		f := make(FeatureVector, 15)
		f[FeatSentiment] = tc.sentiment
		f[FeatMomentum] = tc.momentum
		if got := DetectRegime(f); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
