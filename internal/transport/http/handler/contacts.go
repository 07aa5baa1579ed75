package handler

import (
	"context"
	"net/http"

	"github.com/go-membership-api/internal/domain"
	"go.uber.org/zap"
)

type contactService interface {
	Submit(ctx context.Context, req domain.ContactRequest) (*domain.ContactMessage, error)
}

type ContactHandler struct {
	svc contactService
	log *zap.Logger
}

func NewContactHandler(svc contactService, log *zap.Logger) *ContactHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactHandler{svc: svc, log: log}
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.ContactRequest
	if status, err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	c, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ContactEnvelope{Result: domain.OK(), Contact: c})
}
