// Package feedback routes realized outcomes back into estimator state.
// Each estimator gets its own serial queue with a single worker, so
// outcomes for one estimator apply strictly in arrival order while
// different estimators learn independently. Decision cycles never block
// on feedback.
package feedback

import (
	"context"
	"errors"
	"sync"

	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/types"
)

const defaultQueueDepth = 64

// ErrClosed is returned by Apply after Close.
var ErrClosed = errors.New("feedback loop closed")

type Loop struct {
	mu      sync.Mutex
	queues  map[string]chan types.LearningOutcome
	workers sync.WaitGroup
	senders sync.WaitGroup
	closed  bool
}

var _ interfaces.FeedbackLoop = (*Loop)(nil)

// New starts one worker per estimator. Close must be called to drain.
func New(estimators []interfaces.Estimator, depth int) *Loop {
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	l := &Loop{queues: make(map[string]chan types.LearningOutcome, len(estimators))}
	for _, est := range estimators {
		ch := make(chan types.LearningOutcome, depth)
		l.queues[est.ID()] = ch
		l.workers.Add(1)
		go l.worker(est, ch)
	}
	return l
}

func (l *Loop) worker(est interfaces.Estimator, ch <-chan types.LearningOutcome) {
	defer l.workers.Done()
	ctx := context.Background()
	for outcome := range ch {
		if err := est.Update(outcome); err != nil {
			logger.ErrorWithErr(ctx, "Outcome update failed", err,
				"algorithm_id", outcome.AlgorithmID,
				"context_ref", outcome.ContextRef,
			)
			continue
		}
		logger.Outcome(ctx, outcome)
	}
}

// Apply enqueues one outcome for its owning estimator. Enqueueing blocks
// when the queue is full rather than dropping or reordering. The sender
// registration under the closed-flag mutex is what lets Close wait out
// every in-flight send before it closes a queue.
func (l *Loop) Apply(outcome types.LearningOutcome) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	ch, ok := l.queues[outcome.AlgorithmID]
	if !ok {
		l.mu.Unlock()
		return &types.UnknownAlgorithmError{AlgorithmID: outcome.AlgorithmID}
	}
	l.senders.Add(1)
	l.mu.Unlock()
	defer l.senders.Done()

	ch <- outcome
	return nil
}

// Close stops intake and waits for queued outcomes to finish applying.
// Senders admitted before the flag flipped are waited out while the
// workers keep draining, so a queue is only ever closed with no send in
// flight.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.senders.Wait()
	for _, ch := range l.queues {
		close(ch)
	}
	l.workers.Wait()
}
