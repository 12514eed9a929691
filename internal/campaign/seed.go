package campaign

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCampaigns returns the campaigns provisioned on first run:
// a broad always-on sequence plus a draft VIP variant merchants can
// activate instead.
func DefaultCampaigns() []Campaign {
	core := Campaign{
		ID:        uuid.NewString(),
		Name:      "Core Recovery",
		Status:    StatusActive,
		Priority:  1,
		IsDefault: true,
		Rules: Rules{
			MinimumOrderValue: decimal.Zero,
			CustomerSegment:   "all",
			IncludeCountries:  []string{},
			QuietHoursStart:   22,
			QuietHoursEnd:     8,
		},
		Theme: Theme{
			Headline: "Complete your purchase before your cart expires.",
			Body:     "Your payment did not go through. Use the secure link below to resume checkout and finish your order.",
			Sms:      "Your payment did not go through. Resume checkout here: {{retryUrl}}",
		},
	}
	core.Steps = []Step{
		{ID: uuid.NewString(), CampaignID: core.ID, Position: 0, DelayMinutes: 15, Channel: ChannelEmail, Tone: ToneSteady, StopIfPurchased: true},
		{ID: uuid.NewString(), CampaignID: core.ID, Position: 1, DelayMinutes: 360, Channel: ChannelEmail, Tone: ToneUrgent, StopIfPurchased: true},
		{ID: uuid.NewString(), CampaignID: core.ID, Position: 2, DelayMinutes: 1440, Channel: ChannelSms, Tone: ToneRescue, StopIfPurchased: true},
	}

	vip := Campaign{
		ID:       uuid.NewString(),
		Name:     "VIP Rescue",
		Status:   StatusDraft,
		Priority: 2,
		Rules: Rules{
			MinimumOrderValue: decimal.NewFromInt(250),
			CustomerSegment:   "vip",
			IncludeCountries:  []string{"US", "CA", "GB"},
			QuietHoursStart:   21,
			QuietHoursEnd:     9,
		},
		Theme: Theme{
			Headline: "We saved your order so you can finish in one click.",
			Body:     "A quick payment issue interrupted checkout. Use your secure link and we will restore your order immediately.",
			Sms:      "We saved your order. Resume securely: {{retryUrl}}",
		},
	}
	vip.Steps = []Step{
		{ID: uuid.NewString(), CampaignID: vip.ID, Position: 0, DelayMinutes: 10, Channel: ChannelEmail, Tone: ToneConcierge, StopIfPurchased: true},
		{ID: uuid.NewString(), CampaignID: vip.ID, Position: 1, DelayMinutes: 180, Channel: ChannelSms, Tone: ToneConcierge, StopIfPurchased: true},
	}

	return []Campaign{core, vip}
}
