package campaign

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSms   Channel = "sms"
)

type Tone string

const (
	ToneSteady    Tone = "steady"
	ToneUrgent    Tone = "urgent"
	ToneConcierge Tone = "concierge"
	ToneRescue    Tone = "rescue"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusDraft  Status = "DRAFT"
	StatusPaused Status = "PAUSED"
)

// Rules gate whether a classified signal starts a recovery session.
// Quiet hours are stored and served to the UI but not evaluated during
// matching; outreach timing is owned by the retry schedule.
type Rules struct {
	MinimumOrderValue decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"minimumOrderValue"`
	CustomerSegment   string          `gorm:"not null;default:'all'" json:"customerSegment"`
	IncludeCountries  pq.StringArray  `gorm:"type:text[];not null;default:'{}'" json:"includeCountries"`
	QuietHoursStart   int             `gorm:"not null;default:22" json:"quietHoursStart"`
	QuietHoursEnd     int             `gorm:"not null;default:8" json:"quietHoursEnd"`
}

// Step is one entry in the outreach sequence. Position is the attempt
// index it decorates (tone and channel for message rendering).
type Step struct {
	ID              string  `gorm:"primaryKey" json:"id"`
	CampaignID      string  `gorm:"index;not null" json:"-"`
	Position        int     `gorm:"not null" json:"position"`
	DelayMinutes    int     `gorm:"not null" json:"delayMinutes"`
	Channel         Channel `gorm:"not null" json:"channel"`
	Tone            Tone    `gorm:"not null" json:"tone"`
	StopIfPurchased bool    `gorm:"not null;default:true" json:"stopIfPurchased"`
}

type Theme struct {
	Headline string `gorm:"type:text;not null;default:''" json:"headline"`
	Body     string `gorm:"type:text;not null;default:''" json:"body"`
	Sms      string `gorm:"type:text;not null;default:''" json:"sms"`
}

type Campaign struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Status    Status    `gorm:"index;not null;default:'DRAFT'" json:"status"`
	Priority  int       `gorm:"not null;default:1" json:"priority"`
	IsDefault bool      `gorm:"not null;default:false" json:"isDefault"`
	Rules     Rules     `gorm:"embedded;embeddedPrefix:rule_" json:"rules"`
	Steps     []Step    `gorm:"foreignKey:CampaignID;references:ID" json:"steps"`
	Theme     Theme     `gorm:"embedded;embeddedPrefix:theme_" json:"theme"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"-"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"-"`
}

func (Campaign) TableName() string { return "recovery_campaigns" }
func (Step) TableName() string     { return "recovery_campaign_steps" }

// StepForAttempt picks the step decorating the given attempt index,
// clamping to the last step for attempts past the end of the sequence.
func (c *Campaign) StepForAttempt(attempt int) *Step {
	if c == nil || len(c.Steps) == 0 {
		return nil
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(c.Steps) {
		attempt = len(c.Steps) - 1
	}
	return &c.Steps[attempt]
}
