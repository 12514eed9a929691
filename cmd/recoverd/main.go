package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xapps7/failed-payment-recovery/internal/auth"
	"github.com/xapps7/failed-payment-recovery/internal/campaign"
	"github.com/xapps7/failed-payment-recovery/internal/config"
	"github.com/xapps7/failed-payment-recovery/internal/db"
	httpx "github.com/xapps7/failed-payment-recovery/internal/http"
	"github.com/xapps7/failed-payment-recovery/internal/link"
	"github.com/xapps7/failed-payment-recovery/internal/logging"
	"github.com/xapps7/failed-payment-recovery/internal/notify"
	"github.com/xapps7/failed-payment-recovery/internal/recovery"
	"github.com/xapps7/failed-payment-recovery/internal/settings"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	var (
		store        recovery.Store
		settingsRepo settings.Repo
		campaignRepo campaign.Repo
		accounts     auth.Accounts
	)

	if cfg.DatabaseURL != "" {
		gdb, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("database connect failed")
		}
		if err := db.AutoMigrateAndIndexes(gdb); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		store = &recovery.GormStore{DB: gdb}
		settingsRepo = &settings.GormRepo{DB: gdb}
		campaignRepo = &campaign.GormRepo{DB: gdb}
		accounts = &auth.GormAccounts{DB: gdb}
	} else {
		log.Warn("no DATABASE_URL set, using in-memory stores")
		store = recovery.NewMemoryStore()
		settingsRepo = &settings.MemoryRepo{}
		campaignRepo = &campaign.MemoryRepo{}
		accounts = auth.NewMemoryAccounts()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := campaignRepo.Seed(ctx); err != nil {
		log.WithError(err).Fatal("campaign seed failed")
	}

	readSettings := func() settings.AppSettings {
		s, err := settingsRepo.Read(ctx)
		if err != nil {
			log.WithError(err).Error("settings read failed, using defaults")
			return settings.Defaults()
		}
		return s
	}
	activeCampaign := func() *campaign.Campaign {
		c, err := campaignRepo.Active(ctx)
		if err != nil {
			log.WithError(err).Error("active campaign lookup failed")
			return nil
		}
		return c
	}

	signer := link.NewSigner(cfg.LinkSecret, cfg.LinkTTL)
	notifier := notify.NewProviderNotifier(
		readSettings, activeCampaign, signer,
		cfg.BaseURL, cfg.EmailWebhookURL, cfg.SmsWebhookURL, log,
	)

	runtime := recovery.NewRuntime(
		store, notifier,
		func() []int { return readSettings().RetryMinutes },
		activeCampaign, log,
	)

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	router := httpx.NewRouter(cfg, httpx.Deps{
		Runtime:   runtime,
		Settings:  settingsRepo,
		Campaigns: campaignRepo,
		Accounts:  accounts,
		JWT:       jwtSvc,
		Signer:    signer,
	})

	go runtime.Sweep(ctx, cfg.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("recovery API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
