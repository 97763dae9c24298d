package ensemble

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"bandit-trading-engine/internal/decisionlog"
	"bandit-trading-engine/internal/diversity"
	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/store"
	"bandit-trading-engine/internal/types"
)

// Engine runs one decision cycle: it fans the validated feature vector
// out to every estimator in parallel, joins on the fixed set with a
// per-estimator timeout, and arbitrates the survivors through the
// aggregator. Estimator failures are isolated abstentions; only total
// abstention escalates to the caller.
type Engine struct {
	cfg        *store.Config
	estimators []interfaces.Estimator
	agg        *Aggregator
	validator  *diversity.Validator
	cache      interfaces.Cache
	timeout    time.Duration
}

func New(cfg *store.Config, estimators []interfaces.Estimator, validator *diversity.Validator, cache interfaces.Cache) *Engine {
	return &Engine{
		cfg:        cfg,
		estimators: estimators,
		agg:        NewAggregator(cfg.Aggregation),
		validator:  validator,
		cache:      cache,
		timeout:    time.Duration(cfg.DecisionTimeout) * time.Millisecond,
	}
}

type slot struct {
	estimate types.ConfidenceEstimate
	err      error
}

func (e *Engine) Step(ctx context.Context, features types.FeatureVector) (*types.EnsembleDecision, error) {
	if err := features.Validate(e.cfg.FeatureDimension); err != nil {
		logger.ErrorWithErr(ctx, "Feature vector rejected", err)
		return nil, err
	}

	slots := make([]slot, len(e.estimators))
	var g errgroup.Group
	for i, est := range e.estimators {
		i, est := i, est
		g.Go(func() error {
			slots[i] = e.runEstimator(ctx, est, features)
			return nil
		})
	}
	_ = g.Wait()

	estimates := make([]types.ConfidenceEstimate, 0, len(slots))
	abstained := make([]string, 0)
	for i, s := range slots {
		if s.err != nil {
			abstained = append(abstained, e.estimators[i].ID())
			logger.Warn(ctx, "Estimator abstained",
				"algorithm_id", e.estimators[i].ID(),
				"reason", s.err.Error(),
			)
			continue
		}
		estimates = append(estimates, s.estimate)
	}

	dec, err := e.agg.Aggregate(estimates, abstained)
	if err != nil {
		logger.ErrorWithErr(ctx, "Decision cycle failed", err, "abstained", len(abstained))
		return nil, err
	}

	_ = decisionlog.Append(dec)
	if e.validator != nil {
		e.validator.Observe(dec)
		if report := e.validator.Check(); report.Violation {
			logger.Warn(ctx, "Diversity below threshold",
				"score", report.Score,
				"threshold", report.Threshold,
				"window", report.Window,
			)
		}
	}
	if e.cache != nil {
		if b, err := json.Marshal(dec); err == nil {
			ttl := time.Duration(e.cfg.Cache.TTLSeconds) * time.Second
			if err := e.cache.Put(ctx, "decision:"+dec.ID, b, ttl); err != nil {
				logger.Warn(ctx, "Decision cache write failed", "error", err)
			}
		}
	}

	logger.Decision(ctx, dec)
	return dec, nil
}

// runEstimator executes one estimator under its timeout. A slow
// computation becomes an abstention; the abandoned goroutine finishes in
// the background and its result is dropped.
func (e *Engine) runEstimator(ctx context.Context, est interfaces.Estimator, features types.FeatureVector) slot {
	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan slot, 1)
	go func() {
		estimate, err := est.Estimate(tctx, features)
		done <- slot{estimate: estimate, err: err}
	}()

	select {
	case s := <-done:
		return s
	case <-tctx.Done():
		return slot{err: tctx.Err()}
	}
}

// Diversity returns the current advisory diversity report.
func (e *Engine) Diversity() diversity.Report {
	if e.validator == nil {
		return diversity.Report{}
	}
	return e.validator.Check()
}

// IsNoViable reports whether err is the total-abstention failure.
func IsNoViable(err error) bool {
	var nv *types.NoViableEstimateError
	return errors.As(err, &nv)
}
