package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
)

type walletResponse struct {
	UserID  string  `json:"userId"`
	Balance float64 `json:"balance"`
}

type creditRequest struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`
}

// handleWalletBalance returns a user's prepaid balance. A user who never topped
// up has a balance of zero.
func (h *Handler) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if h.wallets == nil {
		writeError(w, http.StatusServiceUnavailable, "wallet not configured")
		return
	}

	balance, err := h.wallets.Balance(r.Context(), userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		h.logger.Error("failed to read balance", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, walletResponse{UserID: userID, Balance: balance})
}

// handleWalletCredit adds a confirmed top-up to a balance. The payment side signs
// the raw body with the shared secret in X-Signature; unsigned credits are refused.
func (h *Handler) handleWalletCredit(w http.ResponseWriter, r *http.Request) {
	if h.wallets == nil || h.creditSigner == nil {
		writeError(w, http.StatusServiceUnavailable, "wallet top-ups not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.creditSigner.Verify(body, r.Header.Get("X-Signature")); err != nil {
		h.logger.Warn("wallet credit rejected, bad signature", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var req creditRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if req.Amount <= 0 || math.IsInf(req.Amount, 0) || math.IsNaN(req.Amount) {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	balance, err := h.wallets.Credit(r.Context(), req.UserID, req.Amount)
	if err != nil {
		h.logger.Error("failed to credit wallet", "user_id", req.UserID, "amount", req.Amount, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.logger.Info("wallet credited", "user_id", req.UserID, "amount", req.Amount, "balance", balance)
	writeJSON(w, http.StatusOK, walletResponse{UserID: req.UserID, Balance: balance})
}
