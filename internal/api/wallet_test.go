package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/crypto"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/repository"
)

// MockWalletRepository implements repository.WalletRepository for testing
type MockWalletRepository struct {
	BalanceFunc func(ctx context.Context, userID string) (float64, error)
	CreditFunc  func(ctx context.Context, userID string, amount float64) (float64, error)
}

func (m *MockWalletRepository) Balance(ctx context.Context, userID string) (float64, error) {
	if m.BalanceFunc != nil {
		return m.BalanceFunc(ctx, userID)
	}
	return 0, errors.New("not implemented")
}

func (m *MockWalletRepository) Debit(ctx context.Context, userID string, amount float64) (float64, error) {
	return 0, errors.New("not implemented")
}

func (m *MockWalletRepository) Credit(ctx context.Context, userID string, amount float64) (float64, error) {
	if m.CreditFunc != nil {
		return m.CreditFunc(ctx, userID, amount)
	}
	return 0, errors.New("not implemented")
}

func newWalletHandler(t *testing.T, wallets repository.WalletRepository) (*Handler, *crypto.Signer) {
	t.Helper()
	signer, err := crypto.NewSigner("topup-secret")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return NewHandler(HandlerConfig{
		Provider:     &MockCompletionClient{},
		Wallets:      wallets,
		CreditSigner: signer,
	}), signer
}

func decodeWallet(t *testing.T, rec *httptest.ResponseRecorder) walletResponse {
	t.Helper()
	var resp walletResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode wallet body: %v", err)
	}
	return resp
}

func postCredit(h *Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/wallet/credit", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleWalletBalance(t *testing.T) {
	wallets := repository.NewInMemoryWalletRepository()
	wallets.Credit(context.Background(), "u1", 250)
	h, _ := newWalletHandler(t, wallets)

	tests := []struct {
		name        string
		query       string
		wantStatus  int
		wantBalance float64
	}{
		{"existing user", "?userId=u1", http.StatusOK, 250},
		{"never topped up", "?userId=u2", http.StatusOK, 0},
		{"missing user", "", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/wallet"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if resp := decodeWallet(t, rec); resp.Balance != tt.wantBalance {
				t.Errorf("expected balance %v, got %v", tt.wantBalance, resp.Balance)
			}
		})
	}
}

func TestHandleWalletBalance_RepositoryError(t *testing.T) {
	h, _ := newWalletHandler(t, &MockWalletRepository{
		BalanceFunc: func(ctx context.Context, userID string) (float64, error) {
			return 0, errors.New("connection refused")
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/wallet?userId=u1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestHandleWalletCredit(t *testing.T) {
	wallets := repository.NewInMemoryWalletRepository()
	h, signer := newWalletHandler(t, wallets)

	body := `{"userId":"u1","amount":500}`
	rec := postCredit(h, body, signer.Sign([]byte(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := decodeWallet(t, rec); resp.UserID != "u1" || resp.Balance != 500 {
		t.Errorf("unexpected response %+v", resp)
	}

	body = `{"userId":"u1","amount":120.5}`
	rec = postCredit(h, body, signer.Sign([]byte(body)))
	if resp := decodeWallet(t, rec); resp.Balance != 620.5 {
		t.Errorf("expected balance 620.5 after second top-up, got %v", resp.Balance)
	}

	balance, err := wallets.Balance(context.Background(), "u1")
	if err != nil || balance != 620.5 {
		t.Errorf("stored balance = %v, %v", balance, err)
	}
}

func TestHandleWalletCredit_Rejections(t *testing.T) {
	other, _ := crypto.NewSigner("someone-else")

	tests := []struct {
		name       string
		body       string
		sign       func(s *crypto.Signer, body string) string
		wantStatus int
	}{
		{"unsigned", `{"userId":"u1","amount":5}`, func(s *crypto.Signer, body string) string { return "" }, http.StatusUnauthorized},
		{"wrong secret", `{"userId":"u1","amount":5}`, func(s *crypto.Signer, body string) string { return other.Sign([]byte(body)) }, http.StatusUnauthorized},
		{"signature for another body", `{"userId":"u1","amount":5000}`, func(s *crypto.Signer, body string) string { return s.Sign([]byte(`{"userId":"u1","amount":5}`)) }, http.StatusUnauthorized},
		{"zero amount", `{"userId":"u1","amount":0}`, func(s *crypto.Signer, body string) string { return s.Sign([]byte(body)) }, http.StatusBadRequest},
		{"negative amount", `{"userId":"u1","amount":-3}`, func(s *crypto.Signer, body string) string { return s.Sign([]byte(body)) }, http.StatusBadRequest},
		{"missing user", `{"amount":3}`, func(s *crypto.Signer, body string) string { return s.Sign([]byte(body)) }, http.StatusBadRequest},
		{"invalid json", `{amount`, func(s *crypto.Signer, body string) string { return s.Sign([]byte(body)) }, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallets := repository.NewInMemoryWalletRepository()
			h, signer := newWalletHandler(t, wallets)

			rec := postCredit(h, tt.body, tt.sign(signer, tt.body))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if _, err := wallets.Balance(context.Background(), "u1"); err == nil {
				t.Error("expected no wallet to be credited")
			}
		})
	}
}

func TestHandleWalletCredit_DisabledWithoutSigner(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Provider: &MockCompletionClient{},
		Wallets:  repository.NewInMemoryWalletRepository(),
	})

	rec := postCredit(h, `{"userId":"u1","amount":5}`, "sha256=00")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
}
