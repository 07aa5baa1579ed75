package verification

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-membership-api/internal/domain"
	"github.com/stretchr/testify/mock"
)

// memTokens is an in-memory token table with the same claim semantics as
// the DynamoDB repository.
type memTokens struct {
	mu   sync.Mutex
	rows map[string]domain.VerificationToken
}

func newMemTokens() *memTokens { return &memTokens{rows: map[string]domain.VerificationToken{}} }

func (m *memTokens) Supersede(_ context.Context, v *domain.VerificationToken) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[v.Token]; ok {
		return 0, fmt.Errorf("token collision: %w", domain.ErrConflict)
	}
	removed := 0
	for k, row := range m.rows {
		if row.Email == v.Email {
			delete(m.rows, k)
			removed++
		}
	}
	m.rows[v.Token] = *v
	return removed, nil
}

func (m *memTokens) GetByToken(_ context.Context, token string) (*domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &row, nil
}

func (m *memTokens) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, token)
	return nil
}

func (m *memTokens) Claim(_ context.Context, token string) (*domain.VerificationToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.rows, token)
	return &row, nil
}

func (m *memTokens) Restore(_ context.Context, v *domain.VerificationToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Email == v.Email && row.Token != v.Token && !row.CreatedAt.Before(v.CreatedAt) {
			return fmt.Errorf("verification token superseded: %w", domain.ErrConflict)
		}
	}
	if _, ok := m.rows[v.Token]; !ok {
		m.rows[v.Token] = *v
	}
	return nil
}

func (m *memTokens) forEmail(email string) []domain.VerificationToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VerificationToken
	for _, row := range m.rows {
		if row.Email == email {
			out = append(out, row)
		}
	}
	return out
}

type memMembers struct {
	emails map[string]bool
}

func (m *memMembers) GetByEmail(_ context.Context, email string) (*domain.Member, error) {
	if m.emails[email] {
		return &domain.Member{Email: email}, nil
	}
	return nil, domain.ErrNotFound
}

type memCredentials struct {
	mu      sync.Mutex
	byEmail map[string]string
	fail    error
	calls   int
	// during runs inside Create before the outcome is decided.
	during func()
}

func newMemCredentials() *memCredentials { return &memCredentials{byEmail: map[string]string{}} }

func (m *memCredentials) Create(_ context.Context, email, _ string) (string, error) {
	if m.during != nil {
		m.during()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.fail != nil {
		return "", m.fail
	}
	if _, ok := m.byEmail[email]; ok {
		return "", domain.ErrCredentialExists
	}
	uid := fmt.Sprintf("uid-%d", len(m.byEmail)+1)
	m.byEmail[email] = uid
	return uid, nil
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Supersede(ctx context.Context, v *domain.VerificationToken) (int, error) {
	args := m.Called(ctx, v)
	return args.Int(0), args.Error(1)
}
func (m *mockTokens) GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error) {
	args := m.Called(ctx, token)
	if v, _ := args.Get(0).(*domain.VerificationToken); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokens) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockTokens) Claim(ctx context.Context, token string) (*domain.VerificationToken, error) {
	args := m.Called(ctx, token)
	if v, _ := args.Get(0).(*domain.VerificationToken); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokens) Restore(ctx context.Context, v *domain.VerificationToken) error {
	return m.Called(ctx, v).Error(0)
}
