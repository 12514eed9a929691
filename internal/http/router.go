package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/xapps7/failed-payment-recovery/internal/auth"
	"github.com/xapps7/failed-payment-recovery/internal/campaign"
	"github.com/xapps7/failed-payment-recovery/internal/config"
	"github.com/xapps7/failed-payment-recovery/internal/http/handler"
	mw "github.com/xapps7/failed-payment-recovery/internal/http/middleware"
	"github.com/xapps7/failed-payment-recovery/internal/link"
	"github.com/xapps7/failed-payment-recovery/internal/recovery"
	"github.com/xapps7/failed-payment-recovery/internal/settings"
)

type Deps struct {
	Runtime   *recovery.Runtime
	Settings  settings.Repo
	Campaigns campaign.Repo
	Accounts  auth.Accounts
	JWT       *auth.JWT
	Signer    *link.Signer
}

func NewRouter(cfg config.Config, d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	validate := validator.New()

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"service":"failed-payment-recovery"}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{Accounts: d.Accounts, JWT: d.JWT}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	ev := &handler.EventsHandler{Runtime: d.Runtime, Validate: validate}
	r.Post("/events/payment-info-submitted", ev.PaymentInfoSubmitted)
	r.Post("/events/checkout-completed", ev.CheckoutCompleted)
	r.Post("/unsubscribe", ev.Unsubscribe)

	jh := &handler.JobsHandler{Runtime: d.Runtime}
	r.Post("/jobs/run-due", jh.RunDue)

	dh := &handler.DashboardHandler{Runtime: d.Runtime, Settings: d.Settings}
	r.Get("/metrics", dh.Metrics)

	rh := &handler.RecoverHandler{Signer: d.Signer}
	r.Get("/recover/{token}", rh.Resume)

	// merchant-facing admin surface
	sh := &handler.SettingsHandler{Repo: d.Settings, Validate: validate}
	ch := &handler.CampaignsHandler{Repo: d.Campaigns}
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWT))

		r.Get("/dashboard", dh.Dashboard)
		r.Get("/sessions/recent", dh.Recent)

		r.Get("/settings", sh.Get)
		r.Post("/settings", sh.Update)

		r.Get("/campaigns", ch.List)
		r.Post("/campaigns", ch.Save)
		r.Post("/campaigns/{id}/status", ch.SetStatus)
	})

	return r
}
