package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-membership-api/internal/domain"
)

type authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*domain.Credential, error)
}

type tokenSigner interface {
	Sign(uid, email string) (string, error)
	Expiry() time.Duration
}

type LoginResult struct {
	Bearer    string
	UID       string
	Email     string
	ExpiresAt time.Time
}

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error)
}

type ServiceDeps struct {
	Credentials authenticator
	JWTProvider tokenSigner
	Now         func() time.Time
}

type service struct {
	credentials authenticator
	jwtProvider tokenSigner
	now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{credentials: deps.Credentials, jwtProvider: deps.JWTProvider, now: deps.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*LoginResult, error) {
	if s.jwtProvider == nil {
		return nil, fmt.Errorf("session signing not configured: %w", domain.ErrUnauthorized)
	}
	c, err := s.credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	bearer, err := s.jwtProvider.Sign(c.UID, c.Email)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &LoginResult{
		Bearer:    bearer,
		UID:       c.UID,
		Email:     c.Email,
		ExpiresAt: s.now().Add(s.jwtProvider.Expiry()),
	}, nil
}
