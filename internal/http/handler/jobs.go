package handler

import (
	"net/http"
	"time"

	"github.com/xapps7/failed-payment-recovery/internal/recovery"
)

type JobsHandler struct {
	Runtime *recovery.Runtime
}

// RunDue is the manual sweep trigger, sharing the same path as the
// background sweeper.
func (h *JobsHandler) RunDue(w http.ResponseWriter, r *http.Request) {
	processed, err := h.Runtime.RunDue(r.Context(), time.Now().UTC())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "processed": processed})
}
