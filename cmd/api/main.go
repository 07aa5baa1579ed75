package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-membership-api/internal/application/contact"
	"github.com/go-membership-api/internal/application/credential"
	"github.com/go-membership-api/internal/application/member"
	"github.com/go-membership-api/internal/application/memberid"
	"github.com/go-membership-api/internal/application/recovery"
	"github.com/go-membership-api/internal/application/session"
	"github.com/go-membership-api/internal/application/verification"
	"github.com/go-membership-api/internal/config"
	"github.com/go-membership-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-membership-api/internal/infrastructure/jwt"
	"github.com/go-membership-api/internal/infrastructure/metrics"
	"github.com/go-membership-api/internal/infrastructure/smtp"
	"github.com/go-membership-api/internal/infrastructure/sns"
	"github.com/go-membership-api/internal/pkg/logger"
	transporthttp "github.com/go-membership-api/internal/transport/http"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	zl := logger.New(logger.Options{Production: cfg.IsProduction(), Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dynamo client: %w", err)
	}
	// Creates missing tables; existing ones are left untouched.
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, zl)

	tokenRepo := dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.VerificationTokens)
	memberRepo := dynamo.NewMemberRepo(dynamoClient, cfg.DynamoTables.Members, cfg.DynamoTables.MemberKeys)
	counterRepo := dynamo.NewCounterRepo(dynamoClient, cfg.DynamoTables.Counters)
	credentialRepo := dynamo.NewCredentialRepo(dynamoClient, cfg.DynamoTables.Credentials)
	resetRepo := dynamo.NewTokenRepo(dynamoClient, cfg.DynamoTables.PasswordResets)
	contactRepo := dynamo.NewContactRepo(dynamoClient, cfg.DynamoTables.Contacts)

	issuer, err := memberid.New(cfg.MemberIDStrategy, cfg.MemberIDPrefix, cfg.MemberIDWidth, counterRepo, memberRepo)
	if err != nil {
		return err
	}

	alerter, err := sns.NewAlerter(ctx, cfg)
	if err != nil {
		zl.Warn("SNS alerter not available", zap.Error(err))
	}

	m := metrics.New()
	credentialSvc := credential.NewService(credential.ServiceDeps{Store: credentialRepo})
	mailer := smtp.NewMailer(cfg)

	verificationSvc := verification.NewService(verification.ServiceDeps{
		Tokens:      tokenRepo,
		Members:     memberRepo,
		Credentials: credentialSvc,
		Mailer:      mailer,
		Metrics:     m,
		Log:         zl.Named("verification"),
		BaseURL:     cfg.AppBaseURL,
		TTL:         cfg.VerificationTokenTTL,
	})

	memberSvc := member.NewService(member.ServiceDeps{
		Members:     memberRepo,
		Credentials: credentialSvc,
		Issuer:      issuer,
		Strategy:    cfg.MemberIDStrategy,
		Alerter:     alerter,
		Metrics:     m,
		Log:         zl.Named("member"),
	})

	recoverySvc := recovery.NewService(recovery.ServiceDeps{
		Tokens:      resetRepo,
		Credentials: credentialSvc,
		Mailer:      mailer,
		Metrics:     m,
		Log:         zl.Named("recovery"),
		BaseURL:     cfg.AppBaseURL,
		TTL:         cfg.PasswordResetTTL,
	})

	contactSvc := contact.NewService(contact.ServiceDeps{
		Store:   contactRepo,
		Metrics: m,
		Log:     zl.Named("contact"),
	})

	deps := &transporthttp.Deps{
		Verification: verificationSvc,
		Members:      memberSvc,
		Recovery:     recoverySvc,
		Contacts:     contactSvc,
		Metrics:      m,
		Log:          zl.Named("http"),
	}

	// Sessions are optional; without keys, login and protected routes answer
	// with errors while sign-up keeps working.
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		deps.Sessions = session.NewService(session.ServiceDeps{Credentials: credentialSvc, JWTProvider: p})
		deps.Verifier = p
	} else {
		zl.Warn("JWT provider not available", zap.Error(err))
		deps.Sessions = session.NewService(session.ServiceDeps{Credentials: credentialSvc})
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv),
			zap.String("member_id_strategy", cfg.MemberIDStrategy))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	zl.Info("server stopped")
	return nil
}
