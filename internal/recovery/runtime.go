package recovery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xapps7/failed-payment-recovery/internal/campaign"
)

// Runtime ties the classifier, matcher, store and worker together.
// Retry minutes and the active campaign are pulled through the
// providers on every decision, never cached, so settings edits apply
// to sessions already in flight.
type Runtime struct {
	store          Store
	notifier       MessageSender
	retryMinutes   func() []int
	activeCampaign func() *campaign.Campaign
	log            *logrus.Logger
}

func NewRuntime(store Store, notifier MessageSender, retryMinutes func() []int, activeCampaign func() *campaign.Campaign, log *logrus.Logger) *Runtime {
	if retryMinutes == nil {
		retryMinutes = func() []int { return DefaultRetryPolicy().MinutesAfterFailure }
	}
	if log == nil {
		log = logrus.New()
	}
	return &Runtime{
		store:          store,
		notifier:       notifier,
		retryMinutes:   retryMinutes,
		activeCampaign: activeCampaign,
		log:            log,
	}
}

// IngestSignal classifies a checkout signal and opens a session when
// it looks like a failed payment the active campaign targets.
// Rejections are silent by design (logged for operators, no record
// kept); errors only surface from the store itself.
func (r *Runtime) IngestSignal(ctx context.Context, sig CheckoutSignal, now time.Time) error {
	if !LikelyFailedPayment(sig, now) {
		r.log.WithFields(logrus.Fields{
			"checkoutToken": sig.CheckoutToken,
			"reason":        "not_classified",
		}).Debug("signal rejected")
		return nil
	}

	if r.activeCampaign != nil {
		if c := r.activeCampaign(); !MatchesCampaign(sig, c) {
			r.log.WithFields(logrus.Fields{
				"checkoutToken": sig.CheckoutToken,
				"reason":        "campaign_rules",
			}).Debug("signal rejected")
			return nil
		}
	}

	_, err := r.store.UpsertFailedSession(ctx, CreateSessionInput{
		CheckoutToken:   sig.CheckoutToken,
		ShopDomain:      sig.ShopDomain,
		Email:           sig.Email,
		Phone:           sig.Phone,
		AmountSubtotal:  sig.AmountSubtotal,
		CountryCode:     sig.CountryCode,
		CustomerSegment: sig.CustomerSegment,
		FailedAt:        now,
	})
	return err
}

func (r *Runtime) MarkCheckoutRecovered(ctx context.Context, token, orderID string) error {
	_, err := r.store.MarkRecovered(ctx, token, orderID)
	return err
}

func (r *Runtime) Unsubscribe(ctx context.Context, token string) error {
	_, err := r.store.MarkUnsubscribed(ctx, token)
	return err
}

// RunDue processes every currently-due session, one at a time. The
// batch is claimed before anything is sent, so an overlapping sweep
// (the ticker and the manual trigger share this path) delivers each
// attempt at most once. A failing send releases the claim and leaves
// that session unmodified for the next sweep, and never aborts the
// rest of the batch. The returned count is sessions considered, not
// sessions advanced.
func (r *Runtime) RunDue(ctx context.Context, now time.Time) (int, error) {
	due, err := r.store.ClaimDue(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, s := range due {
		policy := PolicyFromMinutes(r.retryMinutes())
		updated, err := ProcessAttempt(ctx, s, now, r.notifier, policy)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"checkoutToken": s.CheckoutToken,
				"attemptCount":  s.AttemptCount,
			}).WithError(err).Warn("recovery attempt failed, will retry next sweep")
			if relErr := r.store.ReleaseClaim(ctx, s.CheckoutToken); relErr != nil {
				r.log.WithField("checkoutToken", s.CheckoutToken).WithError(relErr).Error("claim release failed")
			}
			continue
		}
		if _, err := r.store.Update(ctx, updated); err != nil {
			r.log.WithField("checkoutToken", s.CheckoutToken).WithError(err).Error("session update failed")
		}
	}
	return len(due), nil
}

func (r *Runtime) Metrics(ctx context.Context) (Summary, error) {
	return r.store.Summary(ctx)
}

func (r *Runtime) Recent(ctx context.Context, limit int) ([]Session, error) {
	return r.store.ListRecent(ctx, limit)
}

// Sweep runs RunDue on a fixed cadence until the context is
// cancelled. The manual POST /jobs/run-due trigger shares RunDue.
func (r *Runtime) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.RunDue(ctx, time.Now().UTC())
			if err != nil {
				r.log.WithError(err).Error("sweep failed")
				continue
			}
			if n > 0 {
				r.log.WithField("processed", n).Info("sweep complete")
			}
		}
	}
}
