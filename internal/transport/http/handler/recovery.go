package handler

import (
	"context"
	"net/http"

	"github.com/go-membership-api/internal/domain"
	"go.uber.org/zap"
)

type recoveryService interface {
	RequestReset(ctx context.Context, email string) (*domain.IssuedToken, error)
	ResetPassword(ctx context.Context, token, password string) error
}

// RecoveryHandler serves password reset for existing logins.
type RecoveryHandler struct {
	svc recoveryService
	log *zap.Logger
}

func NewRecoveryHandler(svc recoveryService, log *zap.Logger) *RecoveryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RecoveryHandler{svc: svc, log: log}
}

func (h *RecoveryHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordResetRequest
	if status, err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	issued, err := h.svc.RequestReset(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RegistrationEnvelope{
		Result:    domain.Result{Success: true, Message: "Password reset email sent."},
		Email:     issued.Email,
		ExpiresAt: &issued.ExpiresAt,
	})
}

func (h *RecoveryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if status, err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Result: domain.Result{Success: true, Message: "Password updated."}})
}
