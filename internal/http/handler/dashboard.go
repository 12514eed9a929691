package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/xapps7/failed-payment-recovery/internal/recovery"
	"github.com/xapps7/failed-payment-recovery/internal/settings"
)

type DashboardHandler struct {
	Runtime  *recovery.Runtime
	Settings settings.Repo
}

func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Runtime.Metrics(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *DashboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	sessions, err := h.Runtime.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Runtime.Metrics(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	cfg, err := h.Settings.Read(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	sessions, err := h.Runtime.Recent(r.Context(), 8)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	recoveryRate := 0.0
	if sum.Detected > 0 {
		recoveryRate = math.Round(float64(sum.Recovered)/float64(sum.Detected)*1000) / 10
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metrics": map[string]any{
			"detected":         sum.Detected,
			"recovered":        sum.Recovered,
			"expired":          sum.Expired,
			"active":           sum.Active,
			"recoveredRevenue": sum.RecoveredRevenue,
			"pendingRevenue":   sum.PendingRevenue,
			"recoveryRate":     recoveryRate,
		},
		"settings": cfg,
		"sessions": sessions,
	})
}
