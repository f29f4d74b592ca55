package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/billing"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/crypto"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/images"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/metrics"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/provider/openai"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/ratelimit"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/repository"
)

const (
	maxRequestBody     = 64 << 10
	defaultMaxDuration = 300 * time.Second
	persistTimeout     = 10 * time.Second
)

// CompletionClient is the LLM provider as seen by the handlers.
type CompletionClient interface {
	Configured() bool
	OpenStream(ctx context.Context, req openai.StreamRequest) (io.ReadCloser, error)
	Complete(ctx context.Context, model, system, user string, temperature float64) (string, error)
}

// CostReporter accepts a finalized generation for background billing.
type CostReporter interface {
	Dispatch(ctx context.Context, in billing.Input)
}

type HandlerConfig struct {
	Provider    CompletionClient
	Images      images.Fetcher
	Reporter    CostReporter
	Generations repository.GenerationRepository
	Wallets     repository.WalletRepository
	RateLimiter ratelimit.RateLimiter
	GenerateRPM int

	// CreditSigner verifies top-up requests; without it credits are refused.
	CreditSigner *crypto.Signer

	DefaultModel          string
	IdeaModel             string
	MaxGenerationDuration time.Duration

	HealthCheckers []HealthChecker
	Version        string
	Logger         *slog.Logger
}

type Handler struct {
	provider     CompletionClient
	images       images.Fetcher
	reporter     CostReporter
	generations  repository.GenerationRepository
	wallets      repository.WalletRepository
	creditSigner *crypto.Signer
	rateLimiter  ratelimit.RateLimiter
	generateRPM  int

	defaultModel string
	ideaModel    string
	maxDuration  time.Duration

	logger *slog.Logger
	mux    *http.ServeMux
}

func NewHandler(cfg HandlerConfig) *Handler {
	maxDuration := cfg.MaxGenerationDuration
	if maxDuration <= 0 {
		maxDuration = defaultMaxDuration
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		provider:     cfg.Provider,
		images:       cfg.Images,
		reporter:     cfg.Reporter,
		generations:  cfg.Generations,
		wallets:      cfg.Wallets,
		creditSigner: cfg.CreditSigner,
		rateLimiter:  cfg.RateLimiter,
		generateRPM:  cfg.GenerateRPM,
		defaultModel: cfg.DefaultModel,
		ideaModel:    cfg.IdeaModel,
		maxDuration:  maxDuration,
		logger:       logger,
		mux:          http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /api/generate", h.handleGenerate)
	h.mux.HandleFunc("GET /api/idea", h.handleIdea)
	h.mux.HandleFunc("GET /api/generations", h.handleListGenerations)
	h.mux.HandleFunc("GET /api/wallet", h.handleWalletBalance)
	h.mux.HandleFunc("POST /api/wallet/credit", h.handleWalletCredit)
	h.mux.HandleFunc("GET /view/{id}", h.handleView)
	h.mux.HandleFunc("GET /health/live", h.handleHealthLive)
	h.mux.HandleFunc("GET /health/ready", handleHealthReadyWithCheckers(cfg.HealthCheckers, 5*time.Second, cfg.Version))
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// allow applies the per-caller rate limit and sets the X-RateLimit headers.
// It writes the 429 itself and returns false when the caller is over the limit.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, route, userID, requestID string) bool {
	if h.rateLimiter == nil || h.generateRPM <= 0 {
		return true
	}

	allowed, remaining, resetAt, err := h.rateLimiter.Allow(r.Context(), ratelimit.Key(route, userID, r.RemoteAddr), h.generateRPM)
	if err != nil {
		// A limiter outage should not take generation down with it.
		h.logger.Warn("rate limiter error", "request_id", requestID, "error", err)
		return true
	}

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.generateRPM))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

	if !allowed {
		metrics.RecordRateLimitHit(route)
		h.logger.Warn("rate limit exceeded", "request_id", requestID, "user_id", userID)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	return true
}

// newRequestID mints the ID that keys billing. A caller-supplied X-Request-ID is
// never used for that: repeating it would suppress every report after the first.
func newRequestID() string {
	return uuid.New().String()
}

// clientRequestID is the caller's own X-Request-ID, kept for log correlation only.
func clientRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if len(id) > 128 {
		id = id[:128]
	}
	return id
}

// providerErrorStatus maps a failure to open the provider stream to a status code
// and a message that is safe to show the caller.
func providerErrorStatus(err error) (int, string) {
	if errors.Is(err, domain.ErrMissingCredential) {
		return http.StatusInternalServerError, "Missing OPENAI_API_KEY"
	}
	if ue, ok := openai.IsUpstream(err); ok {
		return http.StatusBadGateway, "provider rejected the request: status " + strconv.Itoa(ue.StatusCode)
	}
	return http.StatusBadGateway, "provider unavailable"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
