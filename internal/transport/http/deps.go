package http

import (
	"github.com/go-membership-api/internal/application/contact"
	"github.com/go-membership-api/internal/application/member"
	"github.com/go-membership-api/internal/application/recovery"
	"github.com/go-membership-api/internal/application/session"
	"github.com/go-membership-api/internal/application/verification"
	"github.com/go-membership-api/internal/infrastructure/metrics"
	appmiddleware "github.com/go-membership-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

// Deps holds the services and infrastructure the router wires into handlers.
type Deps struct {
	Verification verification.Service
	Members      member.Service
	Sessions     session.Service
	Recovery     recovery.Service
	Contacts     contact.Service
	// Verifier authenticates session tokens; nil leaves protected routes unavailable.
	Verifier appmiddleware.TokenVerifier
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}
