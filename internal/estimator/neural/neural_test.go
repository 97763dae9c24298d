package neural

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"bandit-trading-engine/internal/types"
)

const testDim = 15

func testParams() Params {
	return Params{
		Dim:          testDim,
		HiddenSizes:  []int{32, 16},
		LearningRate: 0.01,
		MaxPasses:    8,
		Seed:         42,
		Calibration:  types.CalibrationRange{Min: 0.40, Max: 0.95},
		Profile:      types.DefaultProfile(),
	}
}

func sampleFeatures() types.FeatureVector {
	f := make(types.FeatureVector, testDim)
	f[types.FeatSentiment] = 0.4
	f[types.FeatMomentum] = 0.015
	f[2] = -0.3
	f[5] = 0.8
	f[11] = 0.1
	return f
}

func TestEstimateStaysInCalibrationRange(t *testing.T) {
	e := New(testParams())

	est, err := e.Estimate(context.Background(), sampleFeatures())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est.Value < 0.40 || est.Value > 0.95 {
		t.Errorf("value %.4f outside calibration range", est.Value)
	}
	if est.LowerBound > est.Value || est.Value > est.UpperBound {
		t.Errorf("bounds must bracket value: [%.4f, %.4f] around %.4f",
			est.LowerBound, est.UpperBound, est.Value)
	}
	if est.Uncertainty < 0 {
		t.Errorf("uncertainty must be non-negative, got %.4f", est.Uncertainty)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	e := New(testParams())
	ctx := context.Background()
	f := sampleFeatures()

	first, err := e.Estimate(ctx, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Estimate(ctx, f)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("repeated estimation diverged on call %d: %+v vs %+v", i, first, again)
		}
	}
}

func TestIdenticalSeedsProduceIdenticalNetworks(t *testing.T) {
	a := New(testParams())
	b := New(testParams())
	ctx := context.Background()
	f := sampleFeatures()

	ea, _ := a.Estimate(ctx, f)
	eb, _ := b.Estimate(ctx, f)
	if ea != eb {
		t.Errorf("same seed must initialize identical networks: %+v vs %+v", ea, eb)
	}

	c := testParams()
	c.Seed = 7
	ec, _ := New(c).Estimate(ctx, f)
	if ec == ea {
		t.Error("different seeds should almost surely produce different estimates")
	}
}

func TestUpdateMovesPrediction(t *testing.T) {
	e := New(testParams())
	ctx := context.Background()
	f := sampleFeatures()

	before, _ := e.Estimate(ctx, f)
	for i := 0; i < 30; i++ {
		if err := e.Update(types.LearningOutcome{RealizedReward: 1.0, Features: f}); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}
	after, _ := e.Estimate(ctx, f)

	if after.Value == before.Value {
		t.Error("30 gradient steps should move the prediction")
	}
	if after.Value < 0.40 || after.Value > 0.95 {
		t.Errorf("trained value %.4f escaped calibration range", after.Value)
	}
}

func TestFastProfileTakesFewerPasses(t *testing.T) {
	slow := testParams()
	slow.Profile.DecisionSpeed = 0.0
	fast := testParams()
	fast.Profile.DecisionSpeed = 1.0

	ctx := context.Background()
	f := sampleFeatures()

	se, _ := New(slow).Estimate(ctx, f)
	fe, _ := New(fast).Estimate(ctx, f)

	// A single pass has zero spread, so the fast profile's uncertainty is
	// exactly the pass-deficit penalty.
	wantFast := float64(7) / 8 * passDeficitPenalty
	if math.Abs(fe.Uncertainty-wantFast) > 1e-12 {
		t.Errorf("single-pass uncertainty: want %.5f, got %.5f", wantFast, fe.Uncertainty)
	}
	if se.Uncertainty == fe.Uncertainty && se.Value == fe.Value {
		t.Error("decision speed should change the estimate texture")
	}
}

func TestDivergentGradientLeavesStateUntouched(t *testing.T) {
	e := New(testParams())

	// Install a pathological network whose forward pass overflows, which
	// guarantees a non-finite gradient regardless of input noise.
	crafted := snapshot{
		Sizes: []int{2, 2, 1},
		Weights: [][][]float64{
			{{math.MaxFloat64, 0}, {0, 1}},
			{{1}, {1}},
		},
		Biases:  [][]float64{{0, 0}, {0}},
		Updates: 0,
	}
	blob, _ := json.Marshal(crafted)
	if err := e.Restore(blob); err != nil {
		t.Fatalf("restore: %v", err)
	}

	before, _ := e.Snapshot()
	err := e.Update(types.LearningOutcome{RealizedReward: 0.0, Features: types.FeatureVector{2, 1}})

	var div *types.DivergentGradientError
	if !errors.As(err, &div) {
		t.Fatalf("expected DivergentGradientError, got %v", err)
	}
	after, _ := e.Snapshot()
	if !bytes.Equal(before, after) {
		t.Error("divergent update must leave weights unmodified")
	}
}

func TestUpdateRejectsMalformedFeatures(t *testing.T) {
	e := New(testParams())

	err := e.Update(types.LearningOutcome{RealizedReward: 0.5, Features: make(types.FeatureVector, 3)})
	var inv *types.InvalidFeatureError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvalidFeatureError, got %v", err)
	}
}

func TestSnapshotRestorePreservesBehavior(t *testing.T) {
	e := New(testParams())
	ctx := context.Background()
	f := sampleFeatures()

	for i := 0; i < 5; i++ {
		if err := e.Update(types.LearningOutcome{RealizedReward: 0.4, Features: f}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
	}
	want, _ := e.Estimate(ctx, f)

	blob, err := e.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	restored := New(testParams())
	if err := restored.Restore(blob); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	got, _ := restored.Estimate(ctx, f)

	if got != want {
		t.Errorf("restored network diverged: %+v vs %+v", got, want)
	}
}
