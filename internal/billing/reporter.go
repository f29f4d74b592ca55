// Package billing turns a finalized usage record into a cost report and hands it
// to the configured sinks. Billing never fails a generation: errors are returned
// to the caller for logging only, and Dispatch runs detached from the request.
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/cost"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/metrics"
)

const (
	MaxPromptExcerpt = 500
	DefaultTimeout   = 10 * time.Second
)

// Input is everything known about a generation once its stream has finalized.
type Input struct {
	RequestID string
	UserID    string
	Model     string
	Prompt    string
	Usage     domain.Usage
	Source    domain.UsageSource
}

type Reporter struct {
	pricing *cost.PricingTable
	sink    Sink
	dedup   Deduplicator
	tracker cost.Tracker
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	wg sync.WaitGroup
}

type Option func(*Reporter)

func WithDeduplicator(d Deduplicator) Option {
	return func(r *Reporter) { r.dedup = d }
}

// WithTracker records every report to a local ledger before delivery.
func WithTracker(t cost.Tracker) Option {
	return func(r *Reporter) { r.tracker = t }
}

func WithTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

func NewReporter(pricing *cost.PricingTable, sink Sink, opts ...Option) *Reporter {
	r := &Reporter{
		pricing: pricing,
		sink:    sink,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report prices and delivers one generation synchronously. It returns (nil, nil)
// for anonymous requests and domain.ErrAlreadyReported for a repeated request ID.
func (r *Reporter) Report(ctx context.Context, in Input) (*domain.CostReport, error) {
	if in.UserID == "" {
		return nil, nil
	}

	if r.dedup != nil && !r.dedup.FirstReport(ctx, in.RequestID) {
		metrics.RecordBillingReport("duplicate")
		return nil, domain.ErrAlreadyReported
	}

	report := domain.CostReport{
		RequestID:   in.RequestID,
		UserID:      in.UserID,
		Model:       in.Model,
		Usage:       in.Usage,
		UsageSource: in.Source,
		Cost:        r.pricing.Cost(in.Model, in.Usage.PromptTokens, in.Usage.CompletionTokens),
		Prompt:      Excerpt(in.Prompt, MaxPromptExcerpt),
		Timestamp:   r.now().UTC(),
	}
	metrics.RecordCost(report.Model, report.Cost)

	if r.tracker != nil {
		err := r.tracker.Record(ctx, cost.UsageRecord{
			RequestID:        report.RequestID,
			UserID:           report.UserID,
			Model:            report.Model,
			PromptTokens:     report.Usage.PromptTokens,
			CompletionTokens: report.Usage.CompletionTokens,
			Source:           report.UsageSource,
			CostUSD:          report.Cost,
			Timestamp:        report.Timestamp,
		})
		if errors.Is(err, domain.ErrAlreadyReported) {
			metrics.RecordBillingReport("duplicate")
			return nil, err
		}
		if err != nil {
			r.logger.Warn("usage ledger write failed", "request_id", report.RequestID, "error", err)
		}
	}

	if err := r.sink.Deliver(ctx, report); err != nil {
		metrics.RecordBillingReport("failed")
		return &report, fmt.Errorf("deliver cost report: %w", err)
	}

	metrics.RecordBillingReport("delivered")
	return &report, nil
}

// Dispatch runs Report in the background, detached from ctx's cancellation but
// bounded by the reporter timeout. Failures are logged.
func (r *Reporter) Dispatch(ctx context.Context, in Input) {
	if in.UserID == "" {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		report, err := r.Report(ctx, in)
		switch {
		case errors.Is(err, domain.ErrAlreadyReported):
			r.logger.Debug("cost report skipped, already reported", "request_id", in.RequestID)
		case err != nil:
			r.logger.Error("cost report failed",
				"request_id", in.RequestID,
				"user_id", in.UserID,
				"model", in.Model,
				"error", err,
			)
		case report != nil:
			r.logger.Info("cost reported",
				"request_id", report.RequestID,
				"user_id", report.UserID,
				"model", report.Model,
				"usage_source", report.UsageSource,
				"cost_usd", report.Cost,
			)
		}
	}()
}

// Wait blocks until every dispatched report has finished or ctx is done.
func (r *Reporter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Excerpt returns at most n characters of s.
func Excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
