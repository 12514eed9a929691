package recovery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the Postgres-backed Store. State-changing writes carry
// WHERE preconditions so concurrent callers cannot resurrect a
// terminal session; the unique index on checkout_token makes the
// upsert race-safe.
type GormStore struct {
	DB *gorm.DB
}

func (g *GormStore) UpsertFailedSession(ctx context.Context, in CreateSessionInput) (Session, error) {
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

	// DO NOTHING on conflict keeps existing attempt progress intact
	res := g.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "checkout_token"}}, DoNothing: true}).
		Create(&s)
	if res.Error != nil {
		return Session{}, res.Error
	}
	if res.RowsAffected == 0 {
		return g.GetByCheckoutToken(ctx, in.CheckoutToken)
	}
	return s, nil
}

func (g *GormStore) GetByCheckoutToken(ctx context.Context, token string) (Session, error) {
	var s Session
	err := g.DB.WithContext(ctx).Where("checkout_token = ?", token).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (g *GormStore) MarkRecovered(ctx context.Context, token, orderID string) (Session, error) {
	return g.transition(ctx, token, map[string]any{
		"state":              StateRecovered,
		"recovered_order_id": orderID,
		"next_attempt_at":    nil,
		"claimed_at":         nil,
		"updated_at":         time.Now().UTC(),
	})
}

func (g *GormStore) MarkUnsubscribed(ctx context.Context, token string) (Session, error) {
	return g.transition(ctx, token, map[string]any{
		"state":           StateUnsubscribed,
		"next_attempt_at": nil,
		"claimed_at":      nil,
		"updated_at":      time.Now().UTC(),
	})
}

func (g *GormStore) transition(ctx context.Context, token string, fields map[string]any) (Session, error) {
	res := g.DB.WithContext(ctx).Model(&Session{}).
		Where("checkout_token = ?", token).
		Updates(fields)
	if res.Error != nil {
		return Session{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Session{}, ErrNotFound
	}
	return g.GetByCheckoutToken(ctx, token)
}

// ClaimDue claims every due session in one short transaction and
// returns the claimed rows. FOR UPDATE SKIP LOCKED keeps two
// overlapping sweeps off the same rows while both transactions run;
// the claimed_at marker keeps them off between the claim and the
// write-back. Stale claims are released first so a sweep that died
// mid-send cannot strand a session.
func (g *GormStore) ClaimDue(ctx context.Context, now time.Time) ([]Session, error) {
	var due []Session
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`update recovery_sessions set claimed_at = null, updated_at = now() where claimed_at is not null and claimed_at < ?`,
			now.Add(-claimTTL),
		).Error; err != nil {
			return err
		}

		return tx.Raw(`
with due as (
  select id
  from recovery_sessions
  where state = ? and claimed_at is null
    and next_attempt_at is not null and next_attempt_at <= ?
  order by next_attempt_at asc
  for update skip locked
)
update recovery_sessions
set claimed_at = ?, updated_at = now()
where id in (select id from due)
returning *`, StateLikelyFailedPayment, now, now).Scan(&due).Error
	})
	return due, err
}

func (g *GormStore) ReleaseClaim(ctx context.Context, token string) error {
	return g.DB.WithContext(ctx).Exec(
		`update recovery_sessions set claimed_at = null, updated_at = now() where checkout_token = ?`,
		token,
	).Error
}

func (g *GormStore) ListRecent(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Session
	err := g.DB.WithContext(ctx).
		Order("failed_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (g *GormStore) Update(ctx context.Context, s Session) (Session, error) {
	// updates from a sweep only land while the session is still in
	// outreach; a checkout completed mid-attempt keeps its RECOVERED row
	res := g.DB.WithContext(ctx).Model(&Session{}).
		Where("checkout_token = ? AND state NOT IN ?", s.CheckoutToken,
			[]State{StateRecovered, StateUnsubscribed}).
		Updates(map[string]any{
			"state":           s.State,
			"attempt_count":   s.AttemptCount,
			"last_attempt_at": s.LastAttemptAt,
			"next_attempt_at": s.NextAttemptAt,
			"claimed_at":      nil,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return Session{}, res.Error
	}
	return g.GetByCheckoutToken(ctx, s.CheckoutToken)
}

func (g *GormStore) Summary(ctx context.Context) (Summary, error) {
	sum := Summary{
		RecoveredRevenue: decimal.Zero,
		PendingRevenue:   decimal.Zero,
	}

	type row struct {
		State   State
		N       int
		Revenue decimal.Decimal
	}
	var rows []row
	err := g.DB.WithContext(ctx).Model(&Session{}).
		Select("state, count(*) as n, coalesce(sum(amount_subtotal), 0) as revenue").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return Summary{}, err
	}

	for _, r := range rows {
		sum.Detected += r.N
		switch r.State {
		case StateRecovered:
			sum.Recovered = r.N
			sum.RecoveredRevenue = r.Revenue
		case StateExpired:
			sum.Expired = r.N
		case StateLikelyFailedPayment:
			sum.Active = r.N
			sum.PendingRevenue = r.Revenue
		}
	}
	return sum, nil
}
