package recovery

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xapps7/failed-payment-recovery/internal/campaign"
)

func tp(t time.Time) *time.Time { return &t }

func TestLikelyFailedPaymentWindowBoundary(t *testing.T) {
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := CheckoutSignal{
		CheckoutToken:          "cko_1",
		ShopDomain:             "demo.myshopify.com",
		PaymentInfoSubmittedAt: tp(submitted),
	}

	assert.False(t, LikelyFailedPayment(sig, submitted.Add(14*time.Minute+59*time.Second)))
	assert.True(t, LikelyFailedPayment(sig, submitted.Add(15*time.Minute)))
	assert.True(t, LikelyFailedPayment(sig, submitted.Add(2*time.Hour)))
}

func TestLikelyFailedPaymentCompletionSuppresses(t *testing.T) {
	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := CheckoutSignal{
		CheckoutToken:          "cko_1",
		PaymentInfoSubmittedAt: tp(submitted),
		CheckoutCompletedAt:    tp(submitted.Add(time.Minute)),
	}

	assert.False(t, LikelyFailedPayment(sig, submitted.Add(15*time.Minute)))
	assert.False(t, LikelyFailedPayment(sig, submitted.Add(24*time.Hour)))
}

func TestLikelyFailedPaymentFailsClosed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.False(t, LikelyFailedPayment(CheckoutSignal{CheckoutToken: "cko_1"}, now))
}

func activeCampaignWithRules(rules campaign.Rules) *campaign.Campaign {
	return &campaign.Campaign{
		ID:     "c1",
		Name:   "test",
		Status: campaign.StatusActive,
		Rules:  rules,
	}
}

func TestMatchesCampaignNilAcceptsAll(t *testing.T) {
	assert.True(t, MatchesCampaign(CheckoutSignal{}, nil))
}

func TestMatchesCampaignMinimumOrderValue(t *testing.T) {
	c := activeCampaignWithRules(campaign.Rules{
		MinimumOrderValue: decimal.NewFromInt(100),
		CustomerSegment:   "all",
	})

	assert.False(t, MatchesCampaign(CheckoutSignal{AmountSubtotal: decimal.NewFromInt(99)}, c))
	assert.True(t, MatchesCampaign(CheckoutSignal{AmountSubtotal: decimal.NewFromInt(100)}, c))
	// absent amount defaults to zero and is rejected by a positive floor
	assert.False(t, MatchesCampaign(CheckoutSignal{}, c))
}

func TestMatchesCampaignCountryFilter(t *testing.T) {
	c := activeCampaignWithRules(campaign.Rules{
		CustomerSegment:  "all",
		IncludeCountries: []string{"US", "CA"},
	})

	assert.True(t, MatchesCampaign(CheckoutSignal{CountryCode: "US"}, c))
	assert.False(t, MatchesCampaign(CheckoutSignal{CountryCode: "DE"}, c))
	// no country code: the filter does not exclude
	assert.True(t, MatchesCampaign(CheckoutSignal{}, c))
}

func TestMatchesCampaignSegmentFilter(t *testing.T) {
	c := activeCampaignWithRules(campaign.Rules{CustomerSegment: "vip"})

	assert.True(t, MatchesCampaign(CheckoutSignal{CustomerSegment: "vip"}, c))
	assert.False(t, MatchesCampaign(CheckoutSignal{CustomerSegment: "new"}, c))
	// unknown segment is permissive
	assert.True(t, MatchesCampaign(CheckoutSignal{}, c))
}
