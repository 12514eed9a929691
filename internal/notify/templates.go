package notify

import (
	"fmt"
	"strings"

	"github.com/xapps7/failed-payment-recovery/internal/campaign"
)

// MessageInput is everything template rendering needs. Headline,
// Body and SmsBody come from the active campaign theme when one is
// set; Tone shifts the fallback copy.
type MessageInput struct {
	ShopName string
	RetryURL string
	Headline string
	Body     string
	SmsBody  string
	Tone     campaign.Tone
}

func EmailHTML(in MessageInput) string {
	accent := "Complete your purchase"
	switch in.Tone {
	case campaign.ToneUrgent:
		accent = "Act now"
	case campaign.ToneConcierge:
		accent = "We saved your order"
	case campaign.ToneRescue:
		accent = "Finish securely"
	}

	headline := in.Headline
	if headline == "" {
		headline = fmt.Sprintf("%s at %s", accent, in.ShopName)
	}
	body := in.Body
	if body == "" {
		body = "Your payment did not go through. You can complete checkout securely using the link below."
	}

	return strings.Join([]string{
		fmt.Sprintf("<h2>%s</h2>", headline),
		fmt.Sprintf("<p>%s</p>", body),
		fmt.Sprintf(`<p><a href="%s">Complete your purchase</a></p>`, in.RetryURL),
	}, "\n")
}

func SMSText(in MessageInput) string {
	if in.SmsBody != "" {
		return strings.ReplaceAll(in.SmsBody, "{{retryUrl}}", in.RetryURL)
	}
	return fmt.Sprintf("Complete your purchase at %s: %s", in.ShopName, in.RetryURL)
}
