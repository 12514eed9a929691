package recovery

import (
	"time"

	"github.com/xapps7/failed-payment-recovery/internal/campaign"
)

// FailureWindow is how long payment details may sit without a
// completed checkout before we treat the payment as likely failed.
const FailureWindow = 15 * time.Minute

// LikelyFailedPayment reports whether a checkout signal looks like a
// failed payment: payment info was submitted, the checkout never
// completed, and the window has elapsed. Missing data fails closed so
// we never start unwarranted outreach.
func LikelyFailedPayment(sig CheckoutSignal, now time.Time) bool {
	if sig.PaymentInfoSubmittedAt == nil {
		return false
	}
	if sig.CheckoutCompletedAt != nil {
		return false
	}
	return now.Sub(*sig.PaymentInfoSubmittedAt) >= FailureWindow
}

// MatchesCampaign evaluates a classified signal against the active
// campaign's targeting rules. A nil campaign accepts everything
// (single-campaign mode). Missing signal fields never exclude: a
// country filter only rejects signals that carry a country code, and
// a segment rule only rejects signals that carry a segment.
func MatchesCampaign(sig CheckoutSignal, c *campaign.Campaign) bool {
	if c == nil {
		return true
	}
	rules := c.Rules

	if sig.AmountSubtotal.LessThan(rules.MinimumOrderValue) {
		return false
	}
	if len(rules.IncludeCountries) > 0 && sig.CountryCode != "" {
		found := false
		for _, cc := range rules.IncludeCountries {
			if cc == sig.CountryCode {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if rules.CustomerSegment != "all" && sig.CustomerSegment != "" && sig.CustomerSegment != rules.CustomerSegment {
		return false
	}
	return true
}
