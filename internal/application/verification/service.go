// Package verification gates credential creation behind proof of access to an
// email address. At most one live token exists per address.
package verification

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
	defaultTTL = 24 * time.Hour
	// token values are 256 random bits; a collision on write is retried a few times.
	issueAttempts = 3
	verifyPath    = "/auth/verify-email"
)

type tokenStore interface {
	Supersede(ctx context.Context, v *domain.VerificationToken) (int, error)
	GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error)
	Delete(ctx context.Context, token string) error
	Claim(ctx context.Context, token string) (*domain.VerificationToken, error)
	Restore(ctx context.Context, v *domain.VerificationToken) error
}

type memberLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
}

type credentialCreator interface {
	Create(ctx context.Context, email, password string) (string, error)
}

type Service interface {
	IssueToken(ctx context.Context, email string) (*domain.IssuedToken, error)
	ConsumeToken(ctx context.Context, token, password string) (*domain.ConsumedToken, error)
	// RequestVerification issues a token and mails the verification link.
	RequestVerification(ctx context.Context, email string) (*domain.IssuedToken, error)
}

type ServiceDeps struct {
	Tokens      tokenStore
	Members     memberLookup
	Credentials credentialCreator
	Mailer      smtp.Mailer
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	BaseURL     string
	TTL         time.Duration
	Now         func() time.Time
	// NewToken defaults to pkg/token.NewVerificationToken.
	NewToken func() (string, error)
}

type service struct {
	tokens      tokenStore
	members     memberLookup
	credentials credentialCreator
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
		members:     deps.Members,
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

func (s *service) IssueToken(ctx context.Context, email string) (*domain.IssuedToken, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email required: %w", domain.ErrValidation)
	}

	_, err := s.members.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("issue token: %w", domain.ErrEmailAlreadyRegistered)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

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
		removed, err := s.tokens.Supersede(ctx, v)
		if errors.Is(err, domain.ErrConflict) && attempt < issueAttempts {
			continue
		}
		if err != nil {
			return nil, err
		}
		if removed > 0 {
			s.log.Debug("superseded verification tokens", logger.Email(email), zap.Int("count", removed))
		}
		s.metrics.TokenIssued()
		return &domain.IssuedToken{Email: email, Token: value, ExpiresAt: v.ExpiresAt}, nil
	}
}

func (s *service) ConsumeToken(ctx context.Context, token, password string) (*domain.ConsumedToken, error) {
	consumed, err := s.consume(ctx, token, password)
	outcome := "ok"
	if err != nil {
		outcome = domain.ResultOf(err).Code
	}
	s.metrics.TokenConsumed(outcome)
	return consumed, err
}

func (s *service) consume(ctx context.Context, token, password string) (*domain.ConsumedToken, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", domain.ErrTokenInvalid)
	}
	v, err := s.tokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup token: %w", domain.ErrTokenInvalid)
		}
		return nil, err
	}
	if v.Expired(s.now()) {
		if err := s.tokens.Delete(ctx, token); err != nil {
			s.log.Warn("failed to delete expired verification token", logger.Email(v.Email), zap.Error(err))
		}
		return nil, fmt.Errorf("token expired at %s: %w", v.ExpiresAt.Format(time.RFC3339), domain.ErrTokenExpired)
	}

	// Claiming deletes the record; a concurrent consumer loses here.
	claimed, err := s.tokens.Claim(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("claim token: %w", domain.ErrTokenInvalid)
		}
		return nil, err
	}

	uid, err := s.credentials.Create(ctx, claimed.Email, password)
	if err != nil {
		switch rerr := s.tokens.Restore(ctx, claimed); {
		case errors.Is(rerr, domain.ErrConflict):
			s.log.Info("claimed verification token superseded, not restored", logger.Email(claimed.Email))
		case rerr != nil:
			s.log.Error("failed to restore verification token after credential failure",
				logger.Email(claimed.Email), zap.Error(rerr))
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrCredentialCreation, err)
	}
	s.log.Info("credential created", zap.String("uid", uid))
	return &domain.ConsumedToken{Email: claimed.Email, UID: uid}, nil
}

func (s *service) RequestVerification(ctx context.Context, email string) (*domain.IssuedToken, error) {
	issued, err := s.IssueToken(ctx, email)
	if err != nil {
		return nil, err
	}
	link := s.baseURL + verifyPath + "?token=" + url.QueryEscape(issued.Token)
	body, err := smtp.VerificationBody(link, issued.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("render verification email: %w", err)
	}
	if err := s.mailer.SendEmail(issued.Email, smtp.VerificationSubject, body); err != nil {
		s.log.Error("verification email not delivered", logger.Email(issued.Email), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}
	return issued, nil
}
