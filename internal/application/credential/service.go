package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-membership-api/internal/domain"
	"github.com/go-membership-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type credentialStore interface {
	Create(ctx context.Context, c *domain.Credential) error
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	GetByUID(ctx context.Context, uid string) (*domain.Credential, error)
	UpdatePasswordHash(ctx context.Context, email, hash string, at time.Time) error
}

type Service interface {
	// Create stores a login for email and returns its handle (uid).
	Create(ctx context.Context, email, password string) (string, error)
	// Lookup resolves a handle to its email.
	Lookup(ctx context.Context, uid string) (string, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Credential, error)
	// Exists reports whether a login is stored for email.
	Exists(ctx context.Context, email string) (bool, error)
	// SetPassword replaces the password of an existing login.
	SetPassword(ctx context.Context, email, password string) error
}

type ServiceDeps struct {
	Store credentialStore
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
	Now  func() time.Time
}

type service struct {
	store credentialStore
	cost  int
	now   func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{store: deps.Store, cost: deps.Cost, now: deps.Now}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Create(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	c := &domain.Credential{
		Email:        domain.NormalizeEmail(email),
		UID:          id.NewHandle(),
		PasswordHash: string(hash),
	}
	c.CreatedAt = s.now().UTC()
	c.UpdatedAt = c.CreatedAt
	if err := s.store.Create(ctx, c); err != nil {
		return "", err
	}
	return c.UID, nil
}

func (s *service) Lookup(ctx context.Context, uid string) (string, error) {
	c, err := s.store.GetByUID(ctx, uid)
	if err != nil {
		return "", err
	}
	return c.Email, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*domain.Credential, error) {
	c, err := s.store.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return c, nil
}

func (s *service) Exists(ctx context.Context, email string) (bool, error) {
	_, err := s.store.GetByEmail(ctx, domain.NormalizeEmail(email))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *service) SetPassword(ctx context.Context, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePasswordHash(ctx, domain.NormalizeEmail(email), string(hash), s.now().UTC())
}
