package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xapps7/failed-payment-recovery/internal/campaign"
	"github.com/xapps7/failed-payment-recovery/internal/link"
	"github.com/xapps7/failed-payment-recovery/internal/recovery"
	"github.com/xapps7/failed-payment-recovery/internal/settings"
)

// ProviderNotifier delivers recovery messages. It re-reads settings
// on every send (channel toggles apply immediately), silently skips a
// channel when it is disabled or the contact field is empty, and
// POSTs the rendered message to the configured provider webhook — or
// just logs it when no webhook is set (dev mode).
type ProviderNotifier struct {
	Settings func() settings.AppSettings
	Campaign func() *campaign.Campaign
	Links    *link.Signer
	BaseURL  string

	EmailWebhookURL string
	SmsWebhookURL   string

	Client *http.Client
	Log    *logrus.Logger
}

func NewProviderNotifier(st func() settings.AppSettings, cp func() *campaign.Campaign, signer *link.Signer, baseURL, emailURL, smsURL string, log *logrus.Logger) *ProviderNotifier {
	if log == nil {
		log = logrus.New()
	}
	return &ProviderNotifier{
		Settings:        st,
		Campaign:        cp,
		Links:           signer,
		BaseURL:         baseURL,
		EmailWebhookURL: emailURL,
		SmsWebhookURL:   smsURL,
		Client:          &http.Client{Timeout: 10 * time.Second},
		Log:             log,
	}
}

func (n *ProviderNotifier) SendEmail(ctx context.Context, s recovery.Session) error {
	cfg := n.Settings()
	if !cfg.SendEmail || s.Email == "" {
		return nil
	}

	in := n.messageInput(cfg, s)
	payload := map[string]any{
		"to":      s.Email,
		"from":    cfg.SupportEmail,
		"subject": fmt.Sprintf("Finish your order at %s", in.ShopName),
		"html":    EmailHTML(in),
	}
	return n.deliver(ctx, "email", n.EmailWebhookURL, s, payload)
}

func (n *ProviderNotifier) SendSms(ctx context.Context, s recovery.Session) error {
	cfg := n.Settings()
	if !cfg.SendSms || s.Phone == "" {
		return nil
	}

	in := n.messageInput(cfg, s)
	payload := map[string]any{
		"to":   s.Phone,
		"body": SMSText(in),
	}
	return n.deliver(ctx, "sms", n.SmsWebhookURL, s, payload)
}

func (n *ProviderNotifier) messageInput(cfg settings.AppSettings, s recovery.Session) MessageInput {
	in := MessageInput{
		ShopName: cfg.BrandName,
		Tone:     campaign.ToneSteady,
	}
	if s.ShopDomain != "" {
		in.ShopName = s.ShopDomain
	}

	if n.Links != nil {
		token, err := n.Links.Sign(link.Payload{CheckoutToken: s.CheckoutToken, ShopDomain: s.ShopDomain})
		if err == nil {
			in.RetryURL = fmt.Sprintf("%s/recover/%s", n.BaseURL, token)
		}
	}
	if in.RetryURL == "" {
		in.RetryURL = fmt.Sprintf("https://%s/cart", s.ShopDomain)
	}

	if n.Campaign != nil {
		if c := n.Campaign(); c != nil {
			in.Headline = c.Theme.Headline
			in.Body = c.Theme.Body
			in.SmsBody = c.Theme.Sms
			if step := c.StepForAttempt(s.AttemptCount); step != nil {
				in.Tone = step.Tone
			}
		}
	}
	return in
}

func (n *ProviderNotifier) deliver(ctx context.Context, channel, webhookURL string, s recovery.Session, payload map[string]any) error {
	fields := logrus.Fields{
		"channel":       channel,
		"checkoutToken": s.CheckoutToken,
		"shop":          s.ShopDomain,
	}

	if webhookURL == "" {
		n.Log.WithFields(fields).Info("recovery message (no provider configured)")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s provider: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s provider: unexpected status %d", channel, resp.StatusCode)
	}
	n.Log.WithFields(fields).Info("recovery message sent")
	return nil
}

// LogNotifier writes messages to the log only. Used in tests and as
// a stand-in while provider credentials are absent.
type LogNotifier struct {
	Log *logrus.Logger
}

func (l *LogNotifier) SendEmail(_ context.Context, s recovery.Session) error {
	l.Log.WithFields(logrus.Fields{"channel": "email", "checkoutToken": s.CheckoutToken, "shop": s.ShopDomain}).Info("recovery message")
	return nil
}

func (l *LogNotifier) SendSms(_ context.Context, s recovery.Session) error {
	l.Log.WithFields(logrus.Fields{"channel": "sms", "checkoutToken": s.CheckoutToken, "shop": s.ShopDomain}).Info("recovery message")
	return nil
}
