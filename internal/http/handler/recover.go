package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xapps7/failed-payment-recovery/internal/link"
)

type RecoverHandler struct {
	Signer *link.Signer
}

// Resume validates a signed link from an outreach message and sends
// the shopper back to their cart.
func (h *RecoverHandler) Resume(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	payload, err := h.Signer.Verify(token)
	if err != nil {
		http.Error(w, "recovery link is invalid or expired", http.StatusUnauthorized)
		return
	}

	checkoutURL := fmt.Sprintf("https://%s/cart", payload.ShopDomain)
	http.Redirect(w, r, checkoutURL, http.StatusFound)
}
