package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-membership-api/internal/config"
	"github.com/go-membership-api/internal/transport/http/handler"
	appmiddleware "github.com/go-membership-api/internal/transport/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// rate limiter's cleanup loop.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Observe(log, deps.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10 per client on the sign-up, login, recovery and contact endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)
	authMw := appmiddleware.Auth(deps.Verifier)

	healthH := handler.NewHealthHandler()
	registrationH := handler.NewRegistrationHandler(deps.Verification, log)
	sessionH := handler.NewSessionHandler(deps.Sessions, cfg.IsProduction(), log)
	memberH := handler.NewMemberHandler(deps.Members, log)
	recoveryH := handler.NewRecoveryHandler(deps.Recovery, log)
	contactH := handler.NewContactHandler(deps.Contacts, log)

	r.Handle("/metrics", deps.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/registrations/email", registrationH.RequestEmail)
		r.With(sensitiveRL.Limit).Post("/registrations/password", registrationH.SetPassword)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/logout", sessionH.Logout)

		r.With(sensitiveRL.Limit).Post("/password-recovery/request", recoveryH.Request)
		r.With(sensitiveRL.Limit).Post("/password-recovery/reset", recoveryH.Reset)
		r.With(sensitiveRL.Limit).Post("/contacts", contactH.Submit)

		r.Get("/members/count", memberH.Count)
		r.Get("/members/{memberId}", memberH.Card)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/members", memberH.Register)
			r.Get("/members/me", memberH.Me)
		})
	})

	return r
}
