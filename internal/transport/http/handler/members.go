package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-membership-api/internal/domain"
	"github.com/go-membership-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type memberService interface {
	Register(ctx context.Context, uid string, req domain.RegisterMemberRequest) (*domain.Member, error)
	Get(ctx context.Context, memberID string) (*domain.Member, error)
	GetByUID(ctx context.Context, uid string) (*domain.Member, error)
	Count(ctx context.Context) (int64, error)
}

// MemberHandler handles member registration and lookup.
type MemberHandler struct {
	svc memberService
	log *zap.Logger
}

func NewMemberHandler(svc memberService, log *zap.Logger) *MemberHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MemberHandler{svc: svc, log: log}
}

func (h *MemberHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.log, domain.ErrUnauthorized)
		return
	}
	var req domain.RegisterMemberRequest
	if status, err := decodeValid(r, &req); err != nil {
		writeDecodeError(w, status, err)
		return
	}
	m, err := h.svc.Register(r.Context(), claims.UID, req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, MemberEnvelope{Result: domain.OK(), Member: m})
}

func (h *MemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, h.log, domain.ErrUnauthorized)
		return
	}
	m, err := h.svc.GetByUID(r.Context(), claims.UID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberEnvelope{Result: domain.OK(), Member: m})
}

// Card renders the public card view; personal fields stay private.
func (h *MemberHandler) Card(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "memberId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, CardEnvelope{Result: domain.OK(), Card: m.Card()})
}

func (h *MemberHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Count(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, CountEnvelope{Result: domain.OK(), Count: n})
}
