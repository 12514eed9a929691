package recovery

import (
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StatePending             State = "PENDING"
	StateLikelyFailedPayment State = "LIKELY_FAILED_PAYMENT"
	StateRecovered           State = "RECOVERED"
	StateExpired             State = "EXPIRED"
	StateUnsubscribed        State = "UNSUBSCRIBED"
)

// CheckoutSignal is one inbound checkout event. Absent timestamps
// stay nil; absent strings stay empty; an absent amount is zero.
type CheckoutSignal struct {
	CheckoutToken          string
	ShopDomain             string
	Email                  string
	Phone                  string
	AmountSubtotal         decimal.Decimal
	CountryCode            string
	CustomerSegment        string
	PaymentInfoSubmittedAt *time.Time
	CheckoutCompletedAt    *time.Time
}

// Session tracks outreach for one checkout token. The token is the
// natural key; ID is generated once at creation. Sessions are never
// deleted, they feed the aggregate summary.
type Session struct {
	ID               string          `gorm:"primaryKey" json:"id"`
	CheckoutToken    string          `gorm:"uniqueIndex;not null" json:"checkoutToken"`
	ShopDomain       string          `gorm:"not null" json:"shopDomain"`
	Email            string          `gorm:"not null;default:''" json:"email,omitempty"`
	Phone            string          `gorm:"not null;default:''" json:"phone,omitempty"`
	AmountSubtotal   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amountSubtotal"`
	CountryCode      string          `gorm:"not null;default:''" json:"countryCode,omitempty"`
	CustomerSegment  string          `gorm:"not null;default:''" json:"customerSegment,omitempty"`
	State            State           `gorm:"index;not null" json:"state"`
	AttemptCount     int             `gorm:"not null;default:0" json:"attemptCount"`
	FailedAt         time.Time       `gorm:"index;not null" json:"failedAt"`
	LastAttemptAt    *time.Time      `gorm:"type:timestamptz" json:"lastAttemptAt,omitempty"`
	NextAttemptAt    *time.Time      `gorm:"type:timestamptz;index" json:"nextAttemptAt,omitempty"`
	ClaimedAt        *time.Time      `gorm:"type:timestamptz" json:"-"`
	RecoveredOrderID string          `gorm:"not null;default:''" json:"recoveredOrderId,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;default:now()" json:"-"`
	UpdatedAt        time.Time       `gorm:"not null;default:now()" json:"-"`
}

func (Session) TableName() string { return "recovery_sessions" }

// RetryPolicy holds the per-attempt delay schedule. The delay index
// is the attempt count after the attempt being scheduled for.
type RetryPolicy struct {
	MaxAttempts         int
	MinutesAfterFailure []int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, MinutesAfterFailure: []int{15, 360, 1440}}
}

// PolicyFromMinutes derives a policy from a live retry schedule, the
// shape settings store it in.
func PolicyFromMinutes(minutes []int) RetryPolicy {
	if len(minutes) == 0 {
		return DefaultRetryPolicy()
	}
	return RetryPolicy{MaxAttempts: len(minutes), MinutesAfterFailure: minutes}
}
