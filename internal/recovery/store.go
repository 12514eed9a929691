package recovery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("session not found")

// A claim left in place this long is treated as abandoned (the sweep
// that took it crashed mid-send) and the session becomes claimable
// again.
const claimTTL = 5 * time.Minute

type CreateSessionInput struct {
	CheckoutToken   string
	ShopDomain      string
	Email           string
	Phone           string
	AmountSubtotal  decimal.Decimal
	CountryCode     string
	CustomerSegment string
	FailedAt        time.Time
}

type Summary struct {
	Detected         int             `json:"detected"`
	Recovered        int             `json:"recovered"`
	Expired          int             `json:"expired"`
	Active           int             `json:"active"`
	RecoveredRevenue decimal.Decimal `json:"recoveredRevenue"`
	PendingRevenue   decimal.Decimal `json:"pendingRevenue"`
}

// Store owns session lifecycle, keyed by checkout token.
//
// UpsertFailedSession is idempotent: an existing session is returned
// untouched, attempt progress is never reset. MarkRecovered and
// MarkUnsubscribed transition unconditionally from any state and
// clear the schedule — recovering always wins. Update is a full
// replace, except that it will not clobber a row that has since
// reached RECOVERED or UNSUBSCRIBED (the race between a sweep and an
// external completion resolves in the completion's favor).
//
// ClaimDue atomically marks due sessions as in flight and returns
// them; a session already claimed by another sweep is skipped, so two
// overlapping sweeps never send the same attempt. Update and both
// Mark transitions drop the claim; ReleaseClaim drops it without any
// other change, for the send-failed path. Claims older than claimTTL
// count as abandoned and are handed out again.
type Store interface {
	UpsertFailedSession(ctx context.Context, in CreateSessionInput) (Session, error)
	GetByCheckoutToken(ctx context.Context, token string) (Session, error)
	MarkRecovered(ctx context.Context, token, orderID string) (Session, error)
	MarkUnsubscribed(ctx context.Context, token string) (Session, error)
	ClaimDue(ctx context.Context, now time.Time) ([]Session, error)
	ReleaseClaim(ctx context.Context, token string) error
	ListRecent(ctx context.Context, limit int) ([]Session, error)
	Update(ctx context.Context, s Session) (Session, error)
	Summary(ctx context.Context) (Summary, error)
}

// MemoryStore is the zero-config Store: a token-keyed map behind one
// mutex, which also gives the per-key exclusion the sweep needs.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (m *MemoryStore) UpsertFailedSession(_ context.Context, in CreateSessionInput) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[in.CheckoutToken]; ok {
		return existing, nil
	}

	failedAt := in.FailedAt
	s := Session{
		ID:              uuid.NewString(),
		CheckoutToken:   in.CheckoutToken,
		ShopDomain:      in.ShopDomain,
		Email:           in.Email,
		Phone:           in.Phone,
		AmountSubtotal:  in.AmountSubtotal,
		CountryCode:     in.CountryCode,
		CustomerSegment: in.CustomerSegment,
		State:           StateLikelyFailedPayment,
		AttemptCount:    0,
		FailedAt:        failedAt,
		NextAttemptAt:   &failedAt,
	}
	m.sessions[in.CheckoutToken] = s
	return s, nil
}

func (m *MemoryStore) GetByCheckoutToken(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) MarkRecovered(_ context.Context, token, orderID string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.State = StateRecovered
	s.RecoveredOrderID = orderID
	s.NextAttemptAt = nil
	s.ClaimedAt = nil
	m.sessions[token] = s
	return s, nil
}

func (m *MemoryStore) MarkUnsubscribed(_ context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.State = StateUnsubscribed
	s.NextAttemptAt = nil
	s.ClaimedAt = nil
	m.sessions[token] = s
	return s, nil
}

func (m *MemoryStore) ClaimDue(_ context.Context, now time.Time) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Session
	for token, s := range m.sessions {
		if s.State != StateLikelyFailedPayment {
			continue
		}
		if s.NextAttemptAt == nil || s.NextAttemptAt.After(now) {
			continue
		}
		if s.ClaimedAt != nil && s.ClaimedAt.After(now.Add(-claimTTL)) {
			continue
		}
		claimed := now
		s.ClaimedAt = &claimed
		m.sessions[token] = s
		due = append(due, s)
	}
	return due, nil
}

func (m *MemoryStore) ReleaseClaim(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return ErrNotFound
	}
	s.ClaimedAt = nil
	m.sessions[token] = s
	return nil
}

func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FailedAt.After(out[j].FailedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[s.CheckoutToken]
	if !ok {
		return Session{}, ErrNotFound
	}
	// a completion or unsubscribe that landed mid-attempt wins
	if (current.State == StateRecovered || current.State == StateUnsubscribed) && s.State != current.State {
		return current, nil
	}
	s.ClaimedAt = nil
	m.sessions[s.CheckoutToken] = s
	return s, nil
}

func (m *MemoryStore) Summary(_ context.Context) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := Summary{
		RecoveredRevenue: decimal.Zero,
		PendingRevenue:   decimal.Zero,
	}
	for _, s := range m.sessions {
		sum.Detected++
		switch s.State {
		case StateRecovered:
			sum.Recovered++
			sum.RecoveredRevenue = sum.RecoveredRevenue.Add(s.AmountSubtotal)
		case StateExpired:
			sum.Expired++
		case StateLikelyFailedPayment:
			sum.Active++
			sum.PendingRevenue = sum.PendingRevenue.Add(s.AmountSubtotal)
		}
	}
	return sum, nil
}
