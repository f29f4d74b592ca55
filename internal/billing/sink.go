package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/crypto"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/httputil"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/repository"
)

// Sink receives finalized cost reports.
type Sink interface {
	Deliver(ctx context.Context, report domain.CostReport) error
}

type SinkFunc func(ctx context.Context, report domain.CostReport) error

func (f SinkFunc) Deliver(ctx context.Context, report domain.CostReport) error {
	return f(ctx, report)
}

type namedSink struct {
	name string
	sink Sink
}

// MultiSink delivers to every sink in order. One sink failing does not stop the others.
type MultiSink struct {
	sinks []namedSink
}

func NewMultiSink() *MultiSink {
	return &MultiSink{}
}

func (m *MultiSink) Add(name string, s Sink) *MultiSink {
	m.sinks = append(m.sinks, namedSink{name: name, sink: s})
	return m
}

func (m *MultiSink) Len() int {
	return len(m.sinks)
}

func (m *MultiSink) Deliver(ctx context.Context, report domain.CostReport) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.sink.Deliver(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// WebhookSink POSTs the report as JSON. When a signer is set the body is signed
// in the X-Signature header.
type WebhookSink struct {
	url    string
	client *http.Client
	signer *crypto.Signer
}

func NewWebhookSink(url string, client *http.Client, signer *crypto.Signer) *WebhookSink {
	if client == nil {
		client = httputil.DefaultClient()
	}
	return &WebhookSink{url: url, client: client, signer: signer}
}

func (s *WebhookSink) Deliver(ctx context.Context, report domain.CostReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal cost report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", report.RequestID)
	if s.signer != nil {
		req.Header.Set("X-Signature", s.signer.Sign(body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook error: status=%d", resp.StatusCode)
	}
	return nil
}

// WalletSink debits the report's cost from the user's prepaid balance.
type WalletSink struct {
	wallets repository.WalletRepository
	logger  *slog.Logger
}

func NewWalletSink(wallets repository.WalletRepository, logger *slog.Logger) *WalletSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &WalletSink{wallets: wallets, logger: logger}
}

// Deliver treats an overdrawn wallet as delivered: the generation already happened,
// so the balance is clamped at zero and the shortfall logged.
func (s *WalletSink) Deliver(ctx context.Context, report domain.CostReport) error {
	balance, err := s.wallets.Debit(ctx, report.UserID, report.Cost)
	if errors.Is(err, domain.ErrInsufficientBalance) {
		s.logger.Warn("wallet overdrawn, balance clamped to zero",
			"request_id", report.RequestID,
			"user_id", report.UserID,
			"cost_usd", report.Cost,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("debit wallet: %w", err)
	}

	s.logger.Debug("wallet debited", "user_id", report.UserID, "cost_usd", report.Cost, "balance", balance)
	return nil
}

// InMemorySink records reports. Err, when set, is returned from every Deliver.
type InMemorySink struct {
	mu      sync.Mutex
	reports []domain.CostReport
	Err     error
}

func NewInMemorySink() *InMemorySink {
	return &InMemorySink{}
}

func (s *InMemorySink) Deliver(ctx context.Context, report domain.CostReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return s.Err
}

func (s *InMemorySink) Reports() []domain.CostReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.CostReport, len(s.reports))
	copy(result, s.reports)
	return result
}
