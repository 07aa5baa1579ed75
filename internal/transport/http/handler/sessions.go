package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-membership-api/internal/application/session"
	"github.com/go-membership-api/internal/domain"
	"github.com/go-membership-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type sessionService interface {
	Login(ctx context.Context, req domain.LoginRequest) (*session.LoginResult, error)
}

// SessionHandler handles session endpoints.
type SessionHandler struct {
	svc          sessionService
	secureCookie bool
	log          *zap.Logger
}

// NewSessionHandler returns a handler that marks the session cookie Secure
// when secureCookie is set.
func NewSessionHandler(svc sessionService, secureCookie bool, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{svc: svc, secureCookie: secureCookie, log: log}
}

func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if status, err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	result, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	http.SetCookie(w, h.cookie(result.Bearer, result.ExpiresAt))
	writeJSON(w, http.StatusOK, SessionEnvelope{
		Result:    domain.OK(),
		Bearer:    result.Bearer,
		UID:       result.UID,
		Email:     result.Email,
		ExpiresAt: &result.ExpiresAt,
	})
}

// GetCurrent echoes the verified session claims.
func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.log, domain.ErrUnauthorized)
		return
	}
	env := SessionEnvelope{Result: domain.OK(), UID: claims.UID, Email: claims.Email}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		env.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, env)
}

// Logout clears the session cookie. Bearer tokens are stateless and simply
// stop being presented by the client.
func (h *SessionHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	c := h.cookie("", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(w, c)
	writeJSON(w, http.StatusOK, MessageEnvelope{Result: domain.Result{Success: true, Message: "logged out"}})
}

func (h *SessionHandler) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
