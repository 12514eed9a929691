package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/xapps7/failed-payment-recovery/internal/settings"
)

type SettingsHandler struct {
	Repo     settings.Repo
	Validate *validator.Validate
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Repo.Read(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var p settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(p); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	cfg, err := h.Repo.Write(r.Context(), p)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
