// Package contact accepts messages submitted through the public contact form.
package contact

import (
	"context"
	"strings"
	"time"

	"github.com/go-membership-api/internal/domain"
	"github.com/go-membership-api/internal/infrastructure/metrics"
	"github.com/go-membership-api/internal/pkg/id"
	"github.com/go-membership-api/internal/pkg/logger"
	"go.uber.org/zap"
)

type contactStore interface {
	Create(ctx context.Context, c *domain.ContactMessage) error
}

type Service interface {
	Submit(ctx context.Context, req domain.ContactRequest) (*domain.ContactMessage, error)
}

type ServiceDeps struct {
	Store   contactStore
	Metrics *metrics.Metrics
	Log     *zap.Logger
	Now     func() time.Time
	NewID   func() string
}

type service struct {
	store   contactStore
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
	newID   func() string
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:   deps.Store,
		metrics: deps.Metrics,
		log:     deps.Log,
		now:     deps.Now,
		newID:   deps.NewID,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = id.New
	}
	return s
}

// Submit stores the message as unread. The request is expected to be validated.
func (s *service) Submit(ctx context.Context, req domain.ContactRequest) (*domain.ContactMessage, error) {
	now := s.now().UTC()
	c := &domain.ContactMessage{
		ContactID: s.newID(),
		Name:      strings.TrimSpace(req.Name),
		Email:     domain.NormalizeEmail(req.Email),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		Status:    domain.ContactUnread,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	s.metrics.ContactReceived()
	s.log.Info("contact message received", zap.String("contact_id", c.ContactID), logger.Email(c.Email))
	return c, nil
}
