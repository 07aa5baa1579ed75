package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-membership-api/internal/domain"
)

// HealthHandler handles health-check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeJSON(w, http.StatusOK, MessageEnvelope{Result: domain.Result{Success: true, Message: "pong"}})
		return
	}
	writeJSON(w, http.StatusBadRequest, MessageEnvelope{Result: domain.Result{Code: domain.CodeNotFound, Message: "unknown action"}})
}
