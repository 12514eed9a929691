package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xapps7/failed-payment-recovery/internal/recovery"
)

// EventsHandler receives checkout webhooks. Malformed payloads are
// rejected here; the core only ever sees well-formed signals. Valid
// events are always 202 — classification and campaign matching decide
// silently whether a session starts.
type EventsHandler struct {
	Runtime  *recovery.Runtime
	Validate *validator.Validate
}

type paymentInfoReq struct {
	CheckoutToken          string          `json:"checkoutToken" validate:"required"`
	ShopDomain             string          `json:"shopDomain" validate:"required"`
	Email                  string          `json:"email" validate:"omitempty,email"`
	Phone                  string          `json:"phone"`
	AmountSubtotal         decimal.Decimal `json:"amountSubtotal"`
	CountryCode            string          `json:"countryCode" validate:"omitempty,len=2"`
	CustomerSegment        string          `json:"customerSegment" validate:"omitempty,oneof=all new returning vip"`
	PaymentInfoSubmittedAt string          `json:"paymentInfoSubmittedAt" validate:"required"`
	CheckoutCompletedAt    string          `json:"checkoutCompletedAt"`
}

func (h *EventsHandler) PaymentInfoSubmitted(w http.ResponseWriter, r *http.Request) {
	var req paymentInfoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.AmountSubtotal.IsNegative() {
		http.Error(w, "invalid amountSubtotal", http.StatusBadRequest)
		return
	}

	submittedAt, err := parseRFC3339(req.PaymentInfoSubmittedAt)
	if err != nil || submittedAt == nil {
		http.Error(w, "invalid paymentInfoSubmittedAt (RFC3339)", http.StatusBadRequest)
		return
	}
	completedAt, err := parseRFC3339(req.CheckoutCompletedAt)
	if err != nil {
		http.Error(w, "invalid checkoutCompletedAt (RFC3339)", http.StatusBadRequest)
		return
	}

	sig := recovery.CheckoutSignal{
		CheckoutToken:          req.CheckoutToken,
		ShopDomain:             req.ShopDomain,
		Email:                  req.Email,
		Phone:                  req.Phone,
		AmountSubtotal:         req.AmountSubtotal,
		CountryCode:            strings.ToUpper(req.CountryCode),
		CustomerSegment:        req.CustomerSegment,
		PaymentInfoSubmittedAt: submittedAt,
		CheckoutCompletedAt:    completedAt,
	}
	if err := h.Runtime.IngestSignal(r.Context(), sig, time.Now().UTC()); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

type recoveredReq struct {
	CheckoutToken string `json:"checkoutToken" validate:"required"`
	OrderID       string `json:"orderId" validate:"required"`
}

func (h *EventsHandler) CheckoutCompleted(w http.ResponseWriter, r *http.Request) {
	var req recoveredReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// unknown tokens are fine: nothing to recover, still accepted
	err := h.Runtime.MarkCheckoutRecovered(r.Context(), req.CheckoutToken, req.OrderID)
	if err != nil && !errors.Is(err, recovery.ErrNotFound) {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

type unsubscribeReq struct {
	CheckoutToken string `json:"checkoutToken" validate:"required"`
}

func (h *EventsHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	err := h.Runtime.Unsubscribe(r.Context(), req.CheckoutToken)
	if err != nil && !errors.Is(err, recovery.ErrNotFound) {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func parseRFC3339(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
