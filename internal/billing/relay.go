package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/metrics"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/queue"
)

// Relay drains the billing outbox into a sink. A message is deleted only after
// the sink accepted it; failed messages reappear after the queue's visibility
// timeout, so delivery is at-least-once and the sink should honour the
// Idempotency-Key header.
type Relay struct {
	queue     queue.Queue
	sink      Sink
	batchSize int
	backoff   time.Duration
	logger    *slog.Logger
}

func NewRelay(q queue.Queue, sink Sink, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		queue:     q,
		sink:      sink,
		batchSize: 10,
		backoff:   5 * time.Second,
		logger:    logger,
	}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.RelayOnce(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Warn("billing outbox receive failed", "error", err)
		}
		if err != nil || n == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.backoff):
			}
		}
	}
}

// RelayOnce handles one batch and returns how many reports were delivered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	msgs, err := r.queue.Receive(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, msg := range msgs {
		if err := r.sink.Deliver(ctx, msg.Report); err != nil {
			metrics.RecordOutboxRelay("failed")
			r.logger.Error("billing outbox delivery failed",
				"request_id", msg.Report.RequestID,
				"user_id", msg.Report.UserID,
				"error", err,
			)
			continue
		}
		if err := r.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
			r.logger.Warn("billing outbox ack failed", "request_id", msg.Report.RequestID, "error", err)
		}
		metrics.RecordOutboxRelay("delivered")
		delivered++
	}
	return delivered, nil
}
