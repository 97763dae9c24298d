package feedback

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"

	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/types"
)

// NATSIntake subscribes to the outcome subject the execution collaborator
// publishes on and feeds each record into the feedback loop. NATS
// delivers messages from one subscription in order, which preserves the
// per-estimator ordering guarantee end to end.
type NATSIntake struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

func NewNATSIntake(url, subject string, loop interfaces.FeedbackLoop) (*NATSIntake, error) {
	conn, err := nats.Connect(url, nats.Name("bandit-trading-engine"))
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		var outcome types.LearningOutcome
		if err := json.Unmarshal(msg.Data, &outcome); err != nil {
			logger.Warn(ctx, "Discarding malformed outcome message",
				"subject", msg.Subject,
				"error", err,
			)
			return
		}
		if err := loop.Apply(outcome); err != nil {
			logger.ErrorWithErr(ctx, "Failed to route outcome", err,
				"algorithm_id", outcome.AlgorithmID,
			)
		}
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info(ctx, "Subscribed to outcome feed", "subject", subject, "url", url)
	return &NATSIntake{conn: conn, sub: sub}, nil
}

func (n *NATSIntake) Close() {
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
