package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/crypto"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/repository"
)

func testReport() domain.CostReport {
	return domain.CostReport{
		RequestID:   "req-1",
		UserID:      "user-1",
		Model:       "gpt-5",
		Usage:       domain.Usage{PromptTokens: 120, CompletionTokens: 40, TotalTokens: 160},
		UsageSource: domain.UsageAuthoritative,
		Cost:        0.00055,
		Prompt:      "bakery landing page",
		Timestamp:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookSink_Deliver(t *testing.T) {
	signer, _ := crypto.NewSigner("whsec")
	var payload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := signer.Verify(body, r.Header.Get("X-Signature")); err != nil {
			t.Errorf("signature: %v", err)
		}
		if got := r.Header.Get("Idempotency-Key"); got != "req-1" {
			t.Errorf("Idempotency-Key = %q", got)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewWebhookSink(server.URL, server.Client(), signer)
	if err := s.Deliver(context.Background(), testReport()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	for _, key := range []string{"userId", "model", "usage", "cost", "prompt", "timestamp", "requestId", "usageSource"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("payload missing %q: %v", key, payload)
		}
	}
	usage, _ := payload["usage"].(map[string]any)
	if usage["prompt_tokens"] != float64(120) || usage["completion_tokens"] != float64(40) {
		t.Errorf("usage = %v", usage)
	}
	if payload["timestamp"] != "2026-05-01T12:00:00Z" {
		t.Errorf("timestamp = %v", payload["timestamp"])
	}
}

func TestWebhookSink_Unsigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sig := r.Header.Get("X-Signature"); sig != "" {
			t.Errorf("X-Signature = %q, want none", sig)
		}
	}))
	defer server.Close()

	if err := NewWebhookSink(server.URL, server.Client(), nil).Deliver(context.Background(), testReport()); err != nil {
		t.Errorf("Deliver() error = %v", err)
	}
}

func TestWebhookSink_NonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookSink(server.URL, server.Client(), nil).Deliver(context.Background(), testReport())
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Deliver() error = %v, want status 502", err)
	}
}

func TestWalletSink(t *testing.T) {
	ctx := context.Background()
	wallets := repository.NewInMemoryWalletRepository()
	wallets.Credit(ctx, "user-1", 0.001)
	s := NewWalletSink(wallets, discardLogger)

	if err := s.Deliver(ctx, testReport()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if balance, _ := wallets.Balance(ctx, "user-1"); balance != 0.001-0.00055 {
		t.Errorf("balance = %v", balance)
	}

	overdraw := testReport()
	overdraw.Cost = 1
	if err := s.Deliver(ctx, overdraw); err != nil {
		t.Errorf("overdrawn Deliver() error = %v, want nil", err)
	}
	if balance, _ := wallets.Balance(ctx, "user-1"); balance != 0 {
		t.Errorf("balance = %v, want 0", balance)
	}

	unknown := testReport()
	unknown.UserID = "ghost"
	if err := s.Deliver(ctx, unknown); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown user Deliver() error = %v, want ErrNotFound", err)
	}
}

func TestMultiSink_DeliversToAllAndJoinsErrors(t *testing.T) {
	first := NewInMemorySink()
	failing := NewInMemorySink()
	failing.Err = errors.New("boom")
	last := NewInMemorySink()

	m := NewMultiSink().Add("first", first).Add("failing", failing).Add("last", last)
	err := m.Deliver(context.Background(), testReport())

	if err == nil || !strings.Contains(err.Error(), "failing: boom") {
		t.Errorf("Deliver() error = %v", err)
	}
	if len(first.Reports()) != 1 || len(last.Reports()) != 1 {
		t.Error("a failing sink stopped delivery to the others")
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}
