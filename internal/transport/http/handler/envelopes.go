package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-membership-api/internal/domain"
	"github.com/go-membership-api/internal/pkg/validate"
	"go.uber.org/zap"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	domain.Result
}

// RegistrationEnvelope wraps verification-request and set-password responses.
type RegistrationEnvelope struct {
	domain.Result
	Email     string     `json:"email,omitempty"`
	UID       string     `json:"uid,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// SessionEnvelope wraps login and current-session responses.
type SessionEnvelope struct {
	domain.Result
	Bearer    string     `json:"Bearer,omitempty"`
	UID       string     `json:"uid,omitempty"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// MemberEnvelope wraps the caller's own member record.
type MemberEnvelope struct {
	domain.Result
	Member *domain.Member `json:"member,omitempty"`
}

// CardEnvelope wraps the public membership card view.
type CardEnvelope struct {
	domain.Result
	Card *domain.MemberCard `json:"card,omitempty"`
}

// ContactEnvelope wraps a stored contact message.
type ContactEnvelope struct {
	domain.Result
	Contact *domain.ContactMessage `json:"contact,omitempty"`
}

// CountEnvelope wraps the member count.
type CountEnvelope struct {
	domain.Result
	Count int64 `json:"count"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto its HTTP status and structured Result body.
// Unclassified errors are logged since their detail never reaches the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	res := domain.ResultOf(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		log.Error("request failed", zap.String("code", res.Code), zap.Error(err))
	}
	writeJSON(w, status, MessageEnvelope{Result: res})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmailAlreadyRegistered), errors.Is(err, domain.ErrCredentialExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTokenInvalid):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrIdentifierExhausted),
		errors.Is(err, domain.ErrIdentifierSpaceExhausted),
		errors.Is(err, domain.ErrCredentialCreation),
		errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeValid decodes the JSON request body into dst and validates it.
func decodeValid(r *http.Request, dst interface{}) (int, error) {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return http.StatusBadRequest, err
	}
	if err := validate.Struct(dst); err != nil {
		return http.StatusUnprocessableEntity, err
	}
	return 0, nil
}

func writeDecodeError(w http.ResponseWriter, status int, err error) {
	if status == http.StatusBadRequest {
		writeJSON(w, status, MessageEnvelope{Result: domain.Result{Code: domain.CodeValidation, Message: "invalid request body"}})
		return
	}
	writeJSON(w, status, MessageEnvelope{Result: domain.Result{Code: domain.CodeValidation, Message: err.Error()}})
}
