package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppSettings is the merchant-tunable configuration. Retry minutes
// feed the scheduler live: callers re-read on every decision.
type AppSettings struct {
	BrandName    string `json:"brandName"`
	SupportEmail string `json:"supportEmail"`
	AccentColor  string `json:"accentColor"`
	SendEmail    bool   `json:"sendEmail"`
	SendSms      bool   `json:"sendSms"`
	RetryMinutes []int  `json:"retryMinutes"`
}

func Defaults() AppSettings {
	return AppSettings{
		BrandName:    "Retryly",
		SupportEmail: "support@example.com",
		AccentColor:  "#0f766e",
		SendEmail:    true,
		SendSms:      false,
		RetryMinutes: []int{15, 360, 1440},
	}
}

// Patch carries a partial update; nil fields keep their value.
type Patch struct {
	BrandName    *string `json:"brandName" validate:"omitempty,min=1"`
	SupportEmail *string `json:"supportEmail" validate:"omitempty,email"`
	AccentColor  *string `json:"accentColor" validate:"omitempty,min=4"`
	SendEmail    *bool   `json:"sendEmail"`
	SendSms      *bool   `json:"sendSms"`
	RetryMinutes []int   `json:"retryMinutes" validate:"omitempty,min=1,dive,gt=0"`
}

func (s AppSettings) apply(p Patch) AppSettings {
	if p.BrandName != nil {
		s.BrandName = *p.BrandName
	}
	if p.SupportEmail != nil {
		s.SupportEmail = *p.SupportEmail
	}
	if p.AccentColor != nil {
		s.AccentColor = *p.AccentColor
	}
	if p.SendEmail != nil {
		s.SendEmail = *p.SendEmail
	}
	if p.SendSms != nil {
		s.SendSms = *p.SendSms
	}
	if len(p.RetryMinutes) > 0 {
		s.RetryMinutes = p.RetryMinutes
	}
	return s
}

type Repo interface {
	Read(ctx context.Context) (AppSettings, error)
	Write(ctx context.Context, p Patch) (AppSettings, error)
}

// record is the single settings row.
type record struct {
	ID           int           `gorm:"primaryKey"`
	BrandName    string        `gorm:"not null"`
	SupportEmail string        `gorm:"not null"`
	AccentColor  string        `gorm:"not null"`
	SendEmail    bool          `gorm:"not null"`
	SendSms      bool          `gorm:"not null"`
	RetryMinutes pq.Int64Array `gorm:"type:bigint[];not null"`
}

func (record) TableName() string { return "app_settings" }

func toRecord(s AppSettings) record {
	minutes := make(pq.Int64Array, len(s.RetryMinutes))
	for i, m := range s.RetryMinutes {
		minutes[i] = int64(m)
	}
	return record{
		ID:           1,
		BrandName:    s.BrandName,
		SupportEmail: s.SupportEmail,
		AccentColor:  s.AccentColor,
		SendEmail:    s.SendEmail,
		SendSms:      s.SendSms,
		RetryMinutes: minutes,
	}
}

func (r record) toSettings() AppSettings {
	minutes := make([]int, len(r.RetryMinutes))
	for i, m := range r.RetryMinutes {
		minutes[i] = int(m)
	}
	return AppSettings{
		BrandName:    r.BrandName,
		SupportEmail: r.SupportEmail,
		AccentColor:  r.AccentColor,
		SendEmail:    r.SendEmail,
		SendSms:      r.SendSms,
		RetryMinutes: minutes,
	}
}

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&record{})
}

func (g *GormRepo) Read(ctx context.Context) (AppSettings, error) {
	var rec record
	err := g.DB.WithContext(ctx).First(&rec, 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return AppSettings{}, err
	}
	return rec.toSettings(), nil
}

func (g *GormRepo) Write(ctx context.Context, p Patch) (AppSettings, error) {
	current, err := g.Read(ctx)
	if err != nil {
		return AppSettings{}, err
	}
	next := current.apply(p)
	rec := toRecord(next)
	err = g.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return AppSettings{}, err
	}
	return next, nil
}

type MemoryRepo struct {
	mu      sync.Mutex
	current AppSettings
	seeded  bool
}

func (m *MemoryRepo) Read(_ context.Context) (AppSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seeded {
		m.current = Defaults()
		m.seeded = true
	}
	return m.current, nil
}

func (m *MemoryRepo) Write(_ context.Context, p Patch) (AppSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.seeded {
		m.current = Defaults()
		m.seeded = true
	}
	m.current = m.current.apply(p)
	return m.current, nil
}
