// Package neural implements the nonlinear confidence estimator: a small
// fixed-depth fully-connected network with ReLU hidden layers and a
// sigmoid output squashed into the calibration range. Uncertainty comes
// from dropout-style repeated forward passes; the dropout masks are
// seeded from the feature bytes, so repeated calls with identical state
// and input are bit-identical.
package neural

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"

	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/personality"
	"bandit-trading-engine/internal/types"
)

const AlgorithmID = "neural"

const (
	dropoutKeep = 0.9
	// optimistic output bias: fresh networks lean above the sigmoid
	// midpoint, the structural bias that separates this algorithm from
	// its siblings on zero signal
	outputBiasInit = 0.25
	// uncertainty added per skipped pass when decision speed cuts the
	// pass budget
	passDeficitPenalty = 0.05
)

type Params struct {
	Dim          int
	HiddenSizes  []int
	LearningRate float64
	MaxPasses    int
	Seed         int64
	Calibration  types.CalibrationRange
	Profile      types.PersonalityProfile
}

type Estimator struct {
	mu sync.RWMutex

	dim       int
	sizes     []int // layer widths including input and output
	lr        float64
	maxPasses int
	rng       types.CalibrationRange
	mod       personality.Modulator

	// weights[l][i][j] connects unit i of layer l to unit j of layer l+1
	weights [][][]float64
	biases  [][]float64
	updates int
}

func New(p Params) *Estimator {
	if len(p.HiddenSizes) == 0 {
		p.HiddenSizes = []int{32, 16}
	}
	if p.MaxPasses < 1 {
		p.MaxPasses = 8
	}
	sizes := append([]int{p.Dim}, p.HiddenSizes...)
	sizes = append(sizes, 1)

	src := rand.New(rand.NewSource(p.Seed))
	weights := make([][][]float64, len(sizes)-1)
	biases := make([][]float64, len(sizes)-1)
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(2.0 / float64(in))
		weights[l] = make([][]float64, in)
		for i := 0; i < in; i++ {
			weights[l][i] = make([]float64, out)
			for j := 0; j < out; j++ {
				weights[l][i][j] = src.NormFloat64() * scale
			}
		}
		biases[l] = make([]float64, out)
	}
	biases[len(biases)-1][0] = outputBiasInit

	return &Estimator{
		dim:       p.Dim,
		sizes:     sizes,
		lr:        p.LearningRate,
		maxPasses: p.MaxPasses,
		rng:       p.Calibration,
		mod:       personality.New(p.Profile),
		weights:   weights,
		biases:    biases,
	}
}

func (e *Estimator) ID() string { return AlgorithmID }

// Estimate runs the configured number of stochastic forward passes and
// squashes their mean into the calibration range. Decision speed trades
// passes for latency; fewer passes report higher uncertainty.
func (e *Estimator) Estimate(ctx context.Context, features types.FeatureVector) (types.ConfidenceEstimate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	passes := e.mod.PassCount(e.maxPasses)
	seed := featureSeed(features)

	outs := make([]float64, passes)
	for p := 0; p < passes; p++ {
		outs[p] = e.forwardDropout(features, seed+uint64(p))
	}
	mean, std := meanStd(outs)

	raw := e.rng.FromFraction(mean) * e.mod.AggressionBoost()
	value, clamped := e.rng.Clamp(raw)
	if clamped {
		logger.Bounds(ctx, types.BoundsViolation{AlgorithmID: AlgorithmID, Raw: raw, Range: e.rng})
	}

	deficit := float64(e.maxPasses-passes) / float64(e.maxPasses)
	uncertainty := std + deficit*passDeficitPenalty

	half := uncertainty * e.rng.Width()
	lower, _ := e.rng.Clamp(value - half)
	upper, _ := e.rng.Clamp(value + half)

	return types.ConfidenceEstimate{
		AlgorithmID: AlgorithmID,
		Value:       value,
		LowerBound:  lower,
		UpperBound:  upper,
		Uncertainty: uncertainty,
	}, nil
}

// Update performs one backpropagation step using the realized reward as
// a pseudo-label mapped into the sigmoid's output range. Every gradient
// is verified finite before any weight moves; a divergent gradient
// leaves state untouched.
func (e *Estimator) Update(outcome types.LearningOutcome) error {
	if err := outcome.Features.Validate(e.dim); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	target := clamp01(0.5 + 0.5*outcome.RealizedReward)

	// forward pass keeping pre- and post-activation values
	acts := make([][]float64, len(e.sizes))
	zs := make([][]float64, len(e.sizes)-1)
	acts[0] = outcome.Features.Clone()
	for l := 0; l < len(e.weights); l++ {
		out := e.sizes[l+1]
		z := make([]float64, out)
		a := make([]float64, out)
		for j := 0; j < out; j++ {
			sum := e.biases[l][j]
			for i, wi := range e.weights[l] {
				sum += acts[l][i] * wi[j]
			}
			z[j] = sum
			if l == len(e.weights)-1 {
				a[j] = sigmoid(sum)
			} else {
				a[j] = relu(sum)
			}
		}
		zs[l] = z
		acts[l+1] = a
	}

	pred := acts[len(acts)-1][0]

	// backward pass into gradient buffers, committed only if finite
	gradW := make([][][]float64, len(e.weights))
	gradB := make([][]float64, len(e.biases))
	delta := []float64{(pred - target) * pred * (1 - pred)}

	for l := len(e.weights) - 1; l >= 0; l-- {
		in, out := e.sizes[l], e.sizes[l+1]
		gradW[l] = make([][]float64, in)
		for i := 0; i < in; i++ {
			gradW[l][i] = make([]float64, out)
			for j := 0; j < out; j++ {
				gradW[l][i][j] = acts[l][i] * delta[j]
			}
		}
		gradB[l] = append([]float64(nil), delta...)

		if !finiteSlice(gradB[l]) || !finiteRows(gradW[l]) {
			return &types.DivergentGradientError{AlgorithmID: AlgorithmID, Layer: l}
		}

		if l > 0 {
			prev := make([]float64, in)
			for i := 0; i < in; i++ {
				var sum float64
				for j := 0; j < out; j++ {
					sum += e.weights[l][i][j] * delta[j]
				}
				if zs[l-1][i] > 0 {
					prev[i] = sum
				}
			}
			if !finiteSlice(prev) {
				return &types.DivergentGradientError{AlgorithmID: AlgorithmID, Layer: l - 1}
			}
			delta = prev
		}
	}

	for l := range e.weights {
		for i := range e.weights[l] {
			for j := range e.weights[l][i] {
				e.weights[l][i][j] -= e.lr * gradW[l][i][j]
			}
		}
		for j := range e.biases[l] {
			e.biases[l][j] -= e.lr * gradB[l][j]
		}
	}
	e.updates++
	return nil
}

// forwardDropout is one stochastic pass: hidden activations are dropped
// with probability 1-dropoutKeep and survivors rescaled (inverted
// dropout). The mask RNG is fully determined by the seed.
func (e *Estimator) forwardDropout(features types.FeatureVector, seed uint64) float64 {
	mask := rand.New(rand.NewSource(int64(seed)))
	act := []float64(features)
	for l := 0; l < len(e.weights); l++ {
		out := e.sizes[l+1]
		next := make([]float64, out)
		last := l == len(e.weights)-1
		for j := 0; j < out; j++ {
			sum := e.biases[l][j]
			for i, wi := range e.weights[l] {
				sum += act[i] * wi[j]
			}
			if last {
				next[j] = sigmoid(sum)
				continue
			}
			a := relu(sum)
			if mask.Float64() >= dropoutKeep {
				a = 0
			} else {
				a /= dropoutKeep
			}
			next[j] = a
		}
		act = next
	}
	return act[0]
}

type snapshot struct {
	Sizes   []int         `json:"sizes"`
	Weights [][][]float64 `json:"weights"`
	Biases  [][]float64   `json:"biases"`
	Updates int           `json:"updates"`
}

func (e *Estimator) Snapshot() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return json.Marshal(snapshot{Sizes: e.sizes, Weights: e.weights, Biases: e.biases, Updates: e.updates})
}

func (e *Estimator) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sizes = s.Sizes
	e.dim = s.Sizes[0]
	e.weights = s.Weights
	e.biases = s.Biases
	e.updates = s.Updates
	return nil
}

func featureSeed(features types.FeatureVector) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range features {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

func sigmoid(x float64) float64 {
	if x > 500 {
		x = 500
	} else if x < -500 {
		x = -500
	}
	return 1.0 / (1.0 + math.Exp(-x))
}

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
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

func finiteSlice(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func finiteRows(rows [][]float64) bool {
	for _, r := range rows {
		if !finiteSlice(r) {
			return false
		}
	}
	return true
}
