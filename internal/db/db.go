package db

import (
	"fmt"

	"github.com/xapps7/failed-payment-recovery/internal/auth"
	"github.com/xapps7/failed-payment-recovery/internal/campaign"
	"github.com/xapps7/failed-payment-recovery/internal/recovery"
	"github.com/xapps7/failed-payment-recovery/internal/settings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&recovery.Session{},
		&campaign.Campaign{},
		&campaign.Step{},
		&auth.Account{},
	); err != nil {
		return err
	}
	if err := settings.Migrate(gdb); err != nil {
		return err
	}

	// the sweep's claim query: state + next_attempt_at, unclaimed rows only
	stmts := []string{
		`create index if not exists idx_sessions_due on recovery_sessions(state, next_attempt_at) where claimed_at is null;`,
		`create index if not exists idx_sessions_recent on recovery_sessions(failed_at desc);`,
		`create index if not exists idx_campaign_steps_seq on recovery_campaign_steps(campaign_id, position);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
