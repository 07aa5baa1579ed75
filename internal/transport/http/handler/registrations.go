package handler

import (
	"context"
	"net/http"

	"github.com/go-membership-api/internal/domain"
	"go.uber.org/zap"
)

type verificationService interface {
	RequestVerification(ctx context.Context, email string) (*domain.IssuedToken, error)
	ConsumeToken(ctx context.Context, token, password string) (*domain.ConsumedToken, error)
}

// RegistrationHandler drives the email-verification half of sign-up.
type RegistrationHandler struct {
	svc verificationService
	log *zap.Logger
}

func NewRegistrationHandler(svc verificationService, log *zap.Logger) *RegistrationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationHandler{svc: svc, log: log}
}

// RequestEmail issues a verification token and mails the link. The token
// itself never appears in the response.
func (h *RegistrationHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.VerificationRequest
	if status, err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	issued, err := h.svc.RequestVerification(r.Context(), req.Email)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, RegistrationEnvelope{
		Result:    domain.Result{Success: true, Message: "Verification email sent."},
		Email:     issued.Email,
		ExpiresAt: &issued.ExpiresAt,
	})
}

// SetPassword consumes a verification token and creates the credential.
func (h *RegistrationHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.SetPasswordRequest
	if status, err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	consumed, err := h.svc.ConsumeToken(r.Context(), req.Token, req.Password)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegistrationEnvelope{
		Result: domain.OK(),
		Email:  consumed.Email,
		UID:    consumed.UID,
	})
}
