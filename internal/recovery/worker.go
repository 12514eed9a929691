package recovery

import (
	"context"
	"fmt"
	"time"
)

// MessageSender delivers one outreach attempt. Implementations check
// channel enablement and contact presence themselves and no-op when a
// channel does not apply; the worker never pre-filters.
type MessageSender interface {
	SendEmail(ctx context.Context, s Session) error
	SendSms(ctx context.Context, s Session) error
}

// ProcessAttempt runs one recovery attempt for a due session.
//
// Sessions that left LIKELY_FAILED_PAYMENT between being selected and
// being processed pass through unchanged. Email then SMS are sent in
// sequence; a failed send aborts the whole attempt without advancing
// the session, so the next sweep retries the same attempt index.
// Delivery is at-least-once: a transient notifier failure may cause a
// duplicate message, never a dropped recovery attempt.
func ProcessAttempt(ctx context.Context, s Session, now time.Time, sender MessageSender, policy RetryPolicy) (Session, error) {
	if s.State != StateLikelyFailedPayment {
		return s, nil
	}

	if err := sender.SendEmail(ctx, s); err != nil {
		return s, fmt.Errorf("send email: %w", err)
	}
	if err := sender.SendSms(ctx, s); err != nil {
		return s, fmt.Errorf("send sms: %w", err)
	}

	s.AttemptCount++
	attemptAt := now
	s.LastAttemptAt = &attemptAt
	s.NextAttemptAt = NextAttemptAt(now, s.AttemptCount, policy)
	if s.NextAttemptAt == nil {
		s.State = StateExpired
	}
	return s, nil
}
