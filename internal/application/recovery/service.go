// Package recovery resets the password of an existing login through an
// emailed single-use link.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-membership-api/internal/domain"
	"github.com/go-membership-api/internal/infrastructure/metrics"
	"github.com/go-membership-api/internal/infrastructure/smtp"
	"github.com/go-membership-api/internal/pkg/logger"
	pkgtoken "github.com/go-membership-api/internal/pkg/token"
	"go.uber.org/zap"
)

const (
	defaultTTL    = time.Hour
	issueAttempts = 3
	resetPath     = "/auth/reset-password"
)

type tokenStore interface {
	Supersede(ctx context.Context, v *domain.VerificationToken) (int, error)
	GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error)
	Delete(ctx context.Context, token string) error
	Claim(ctx context.Context, token string) (*domain.VerificationToken, error)
	Restore(ctx context.Context, v *domain.VerificationToken) error
}

type credentialStore interface {
	Exists(ctx context.Context, email string) (bool, error)
	SetPassword(ctx context.Context, email, password string) error
}

type Service interface {
	// RequestReset mails a reset link to a registered email.
	RequestReset(ctx context.Context, email string) (*domain.IssuedToken, error)
	// ResetPassword consumes a reset token and stores the new password.
	ResetPassword(ctx context.Context, token, password string) error
}

type ServiceDeps struct {
	Tokens      tokenStore
	Credentials credentialStore
	Mailer      smtp.Mailer
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	BaseURL     string
	TTL         time.Duration
	Now         func() time.Time
	NewToken    func() (string, error)
}

type service struct {
	tokens      tokenStore
	credentials credentialStore
	mailer      smtp.Mailer
	metrics     *metrics.Metrics
	log         *zap.Logger
	baseURL     string
	ttl         time.Duration
	now         func() time.Time
	newToken    func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		tokens:      deps.Tokens,
		credentials: deps.Credentials,
		mailer:      deps.Mailer,
		metrics:     deps.Metrics,
		log:         deps.Log,
		baseURL:     deps.BaseURL,
		ttl:         deps.TTL,
		now:         deps.Now,
		newToken:    deps.NewToken,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newToken == nil {
		s.newToken = pkgtoken.NewVerificationToken
	}
	return s
}

func (s *service) RequestReset(ctx context.Context, email string) (*domain.IssuedToken, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email required: %w", domain.ErrValidation)
	}
	ok, err := s.credentials.Exists(ctx, email)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no login for email: %w", domain.ErrNotFound)
	}

	issued, err := s.issue(ctx, email)
	if err != nil {
		return nil, err
	}
	link := s.baseURL + resetPath + "?token=" + url.QueryEscape(issued.Token)
	body, err := smtp.PasswordResetBody(link, issued.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("render password reset email: %w", err)
	}
	if err := s.mailer.SendEmail(email, smtp.PasswordResetSubject, body); err != nil {
		s.log.Error("password reset email not delivered", logger.Email(email), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return issued, nil
}

// issue replaces any outstanding reset token for email with a fresh one.
func (s *service) issue(ctx context.Context, email string) (*domain.IssuedToken, error) {
	for attempt := 1; ; attempt++ {
		value, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}
		now := s.now().UTC()
		v := &domain.VerificationToken{
			Token:     value,
			Email:     email,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
			TTL:       now.Add(s.ttl).Unix(),
		}
		_, err = s.tokens.Supersede(ctx, v)
		if errors.Is(err, domain.ErrConflict) && attempt < issueAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &domain.IssuedToken{Email: email, Token: value, ExpiresAt: v.ExpiresAt}, nil
	}
}

func (s *service) ResetPassword(ctx context.Context, token, password string) error {
	err := s.reset(ctx, token, password)
	outcome := "ok"
	if err != nil {
		outcome = domain.ResultOf(err).Code
	}
	s.metrics.PasswordReset(outcome)
	return err
}

func (s *service) reset(ctx context.Context, token, password string) error {
	if token == "" {
		return fmt.Errorf("empty token: %w", domain.ErrTokenInvalid)
	}
	v, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("lookup reset token: %w", domain.ErrTokenInvalid)
		}
		return err
	}
	if v.Expired(s.now()) {
		if err := s.tokens.Delete(ctx, token); err != nil {
			s.log.Warn("failed to delete expired reset token", logger.Email(v.Email), zap.Error(err))
		}
		return fmt.Errorf("reset token expired at %s: %w", v.ExpiresAt.Format(time.RFC3339), domain.ErrTokenExpired)
	}

	claimed, err := s.tokens.Claim(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("claim reset token: %w", domain.ErrTokenInvalid)
		}
		return err
	}

	if err := s.credentials.SetPassword(ctx, claimed.Email, password); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("login removed: %w", domain.ErrTokenInvalid)
		}
		switch rerr := s.tokens.Restore(ctx, claimed); {
		case errors.Is(rerr, domain.ErrConflict):
			s.log.Info("claimed reset token superseded, not restored", logger.Email(claimed.Email))
		case rerr != nil:
			s.log.Error("failed to restore reset token after password update failure",
				logger.Email(claimed.Email), zap.Error(rerr))
		}
		return err
	}
	s.log.Info("password reset", logger.Email(claimed.Email))
	return nil
}
