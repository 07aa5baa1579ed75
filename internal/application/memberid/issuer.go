// Package memberid issues membership identifiers of the form PREFIX-<digits>.
package memberid

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/go-membership-api/internal/domain"
)

// Issuer produces a membership identifier not held by any existing member.
type Issuer interface {
	Issue(ctx context.Context) (string, error)
}

type counterStore interface {
	Next(ctx context.Context, name string, ceiling int64) (int64, error)
}

// CounterIssuer draws the next value of a shared counter. Values are
// strictly increasing and never reused.
type CounterIssuer struct {
	counters counterStore
	name     string
	prefix   string
	width    int
	ceiling  int64
}

// NewCounterIssuer returns an issuer formatting counter values zero padded to width digits.
func NewCounterIssuer(counters counterStore, name, prefix string, width int) *CounterIssuer {
	return &CounterIssuer{
		counters: counters,
		name:     name,
		prefix:   prefix,
		width:    width,
		ceiling:  maxForWidth(width),
	}
}

func (c *CounterIssuer) Issue(ctx context.Context) (string, error) {
	n, err := c.counters.Next(ctx, c.name, c.ceiling)
	if err != nil {
		return "", err
	}
	return format(c.prefix, c.width, n), nil
}

// Ceiling is the largest sequence number the issuer can hand out.
func (c *CounterIssuer) Ceiling() int64 { return c.ceiling }

type memberLookup interface {
	ExistsByMemberID(ctx context.Context, memberID string) (bool, error)
}

const (
	randomMin      = 100000
	randomSpan     = 900000
	randomDigits   = 6
	randomAttempts = 10
)

// RandomIssuer draws six-digit identifiers and retries on collision.
// The identifier is not reserved until the member is written; a concurrent
// write of the same value is rejected by the member-id guard at create time.
type RandomIssuer struct {
	members  memberLookup
	prefix   string
	attempts int
	draw     func() (int64, error)
}

func NewRandomIssuer(members memberLookup, prefix string) *RandomIssuer {
	return &RandomIssuer{members: members, prefix: prefix, attempts: randomAttempts, draw: cryptoDraw}
}

func (r *RandomIssuer) Issue(ctx context.Context) (string, error) {
	for i := 0; i < r.attempts; i++ {
		n, err := r.draw()
		if err != nil {
			return "", fmt.Errorf("draw member id: %w", err)
		}
		candidate := format(r.prefix, randomDigits, n)
		taken, err := r.members.ExistsByMemberID(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%d collisions in a row: %w", r.attempts, domain.ErrIdentifierExhausted)
}

func cryptoDraw() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(randomSpan))
	if err != nil {
		return 0, err
	}
	return randomMin + n.Int64(), nil
}

// CounterName is the counters-table key backing the counter strategy.
const CounterName = "member_id"

// New selects an issuer for strategy: "counter" or "random".
func New(strategy, prefix string, width int, counters counterStore, members memberLookup) (Issuer, error) {
	switch strategy {
	case "counter":
		if maxForWidth(width) == 0 {
			return nil, fmt.Errorf("member id width %d out of range", width)
		}
		return NewCounterIssuer(counters, CounterName, prefix, width), nil
	case "random":
		return NewRandomIssuer(members, prefix), nil
	default:
		return nil, fmt.Errorf("unknown member id strategy %q", strategy)
	}
}

func format(prefix string, width int, n int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, width, n)
}

func maxForWidth(width int) int64 {
	if width <= 0 || width > 18 {
		return 0
	}
	m := int64(1)
	for i := 0; i < width; i++ {
		m *= 10
	}
	return m - 1
}
