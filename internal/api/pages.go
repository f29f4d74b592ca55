package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/domain"
	"github.com/mdnomanmiazi/Ai-landing-page-Saas/internal/prompt"
)

const (
	ideaTemperature  = 0.8
	ideaFallback     = "Landing page for a coffee shop"
	ideaErrorDefault = "Landing page for a digital agency"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type ideaResponse struct {
	Idea string `json:"idea"`
	TS   int64  `json:"ts,omitempty"`
}

// handleIdea suggests a random website idea. Apart from a missing credential it
// never fails: provider errors fall back to a fixed suggestion.
func (h *Handler) handleIdea(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	if !h.provider.Configured() {
		writeError(w, http.StatusInternalServerError, "OpenAI API Key is missing")
		return
	}

	idea, err := h.provider.Complete(r.Context(), h.ideaModel, prompt.IdeaInstruction, prompt.IdeaUserPrompt, ideaTemperature)
	if err != nil {
		h.logger.Warn("idea generation failed", "model", h.ideaModel, "error", err)
		writeJSON(w, http.StatusOK, ideaResponse{Idea: ideaErrorDefault})
		return
	}

	idea = strings.TrimSpace(idea)
	if idea == "" {
		idea = ideaFallback
	}
	writeJSON(w, http.StatusOK, ideaResponse{Idea: idea, TS: time.Now().UnixMilli()})
}

// handleListGenerations returns a user's saved pages, newest first.
func (h *Handler) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if h.generations == nil {
		writeJSON(w, http.StatusOK, []*domain.Generation{})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	gens, err := h.generations.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("failed to list generations", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, gens)
}

// handleView serves a saved page as a standalone website.
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	if h.generations == nil {
		http.Error(w, "Website not found", http.StatusNotFound)
		return
	}

	gen, err := h.generations.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Website not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load generation", "generation_id", r.PathValue("id"), "error", err)
		http.Error(w, "Website not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(gen.HTML))
}
