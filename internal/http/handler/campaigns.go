package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xapps7/failed-payment-recovery/internal/campaign"
)

type CampaignsHandler struct {
	Repo campaign.Repo
}

func (h *CampaignsHandler) List(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Repo.List(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *CampaignsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var c campaign.Campaign
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	switch c.Status {
	case campaign.StatusActive, campaign.StatusDraft, campaign.StatusPaused:
	case "":
		c.Status = campaign.StatusDraft
	default:
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	for i := range c.Steps {
		if c.Steps[i].ID == "" {
			c.Steps[i].ID = uuid.NewString()
		}
		c.Steps[i].CampaignID = c.ID
	}

	saved, err := h.Repo.Save(r.Context(), c)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type statusReq struct {
	Status campaign.Status `json:"status"`
}

func (h *CampaignsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case campaign.StatusActive, campaign.StatusDraft, campaign.StatusPaused:
	default:
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	c, err := h.Repo.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
