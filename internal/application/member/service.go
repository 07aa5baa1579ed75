package member

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-membership-api/internal/application/memberid"
	"github.com/go-membership-api/internal/domain"
	"github.com/go-membership-api/internal/infrastructure/metrics"
	"github.com/go-membership-api/internal/infrastructure/sns"
	"github.com/go-membership-api/internal/pkg/id"
	"go.uber.org/zap"
)

// writeAttempts bounds re-issuance after a member-id collision at write time.
const writeAttempts = 3

type memberStore interface {
	Create(ctx context.Context, m *domain.Member) error
	GetByMemberID(ctx context.Context, memberID string) (*domain.Member, error)
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	GetByUID(ctx context.Context, uid string) (*domain.Member, error)
	Count(ctx context.Context) (int64, error)
}

type credentialLookup interface {
	Lookup(ctx context.Context, uid string) (string, error)
}

type Service interface {
	// Register binds a member record to the credential uid. Calling it again for
	// a uid that already has a member returns that member unchanged.
	Register(ctx context.Context, uid string, req domain.RegisterMemberRequest) (*domain.Member, error)
	Get(ctx context.Context, memberID string) (*domain.Member, error)
	GetByUID(ctx context.Context, uid string) (*domain.Member, error)
	Count(ctx context.Context) (int64, error)
}

type ServiceDeps struct {
	Members     memberStore
	Credentials credentialLookup
	Issuer      memberid.Issuer
	// Strategy labels issued identifiers in metrics and logs.
	Strategy string
	Alerter  sns.Alerter
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Now      func() time.Time
}

type service struct {
	members     memberStore
	credentials credentialLookup
	issuer      memberid.Issuer
	strategy    string
	alerter     sns.Alerter
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		members:     deps.Members,
		credentials: deps.Credentials,
		issuer:      deps.Issuer,
		strategy:    deps.Strategy,
		alerter:     deps.Alerter,
		metrics:     deps.Metrics,
		log:         deps.Log,
		now:         deps.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Register(ctx context.Context, uid string, req domain.RegisterMemberRequest) (*domain.Member, error) {
	if uid == "" {
		return nil, fmt.Errorf("missing credential: %w", domain.ErrUnauthorized)
	}
	existing, err := s.members.GetByUID(ctx, uid)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	email, err := s.credentials.Lookup(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("unknown credential: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	email = domain.NormalizeEmail(email)

	if holder, err := s.members.GetByEmail(ctx, email); err == nil {
		if holder.UID == uid {
			return holder, nil
		}
		return nil, fmt.Errorf("register member: %w", domain.ErrEmailAlreadyRegistered)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for attempt := 1; attempt <= writeAttempts; attempt++ {
		memberID, err := s.issuer.Issue(ctx)
		if err != nil {
			s.reportExhaustion(ctx, err)
			return nil, err
		}
		s.metrics.IdentifierIssued(s.strategy)

		now := s.now().UTC()
		m := &domain.Member{
			RecordID:  id.New(),
			UID:       uid,
			Name:      req.Name,
			Email:     email,
			Age:       req.Age,
			Gender:    req.Gender,
			HairType:  req.HairType,
			MemberID:  memberID,
			IssuedAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.members.Create(ctx, m)
		switch {
		case err == nil:
			s.metrics.MemberRegistered()
			s.log.Info("member registered", zap.String("uid", uid), zap.String("member_id", memberID))
			return m, nil
		case errors.Is(err, domain.ErrIdentifierTaken):
			s.log.Warn("member id collided at write, re-issuing",
				zap.String("member_id", memberID), zap.String("strategy", s.strategy), zap.Int("attempt", attempt))
			continue
		case errors.Is(err, domain.ErrConflict):
			// a concurrent Register for the same uid won
			return s.members.GetByUID(ctx, uid)
		default:
			return nil, err
		}
	}
	err = fmt.Errorf("member id taken on %d writes: %w", writeAttempts, domain.ErrIdentifierExhausted)
	s.reportExhaustion(ctx, err)
	return nil, err
}

// reportExhaustion logs and alerts when the identifier space or retry budget ran out.
func (s *service) reportExhaustion(ctx context.Context, err error) {
	if !errors.Is(err, domain.ErrIdentifierExhausted) && !errors.Is(err, domain.ErrIdentifierSpaceExhausted) {
		return
	}
	code := domain.ResultOf(err).Code
	s.metrics.IdentifierExhausted(code)
	s.log.Error("member identifier issuance exhausted",
		zap.String("strategy", s.strategy), zap.String("code", code), zap.Error(err))
	if s.alerter == nil {
		return
	}
	if aerr := s.alerter.Alert(ctx, "Member identifier issuance exhausted", err.Error()); aerr != nil {
		s.log.Error("failed to raise exhaustion alert", zap.Error(aerr))
	}
}

func (s *service) Get(ctx context.Context, memberID string) (*domain.Member, error) {
	return s.members.GetByMemberID(ctx, memberID)
}

func (s *service) GetByUID(ctx context.Context, uid string) (*domain.Member, error) {
	return s.members.GetByUID(ctx, uid)
}

func (s *service) Count(ctx context.Context) (int64, error) {
	return s.members.Count(ctx)
}
