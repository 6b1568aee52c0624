package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/aetherdial/dial-engine/internal/errors"
	"github.com/aetherdial/dial-engine/internal/model"
	"github.com/aetherdial/dial-engine/internal/service"
)

// CampaignHandler holds the dependencies for campaign-related HTTP handlers
type CampaignHandler struct {
	Service *service.CampaignService
}

// NewCampaignHandler creates a new CampaignHandler backed by the service
func NewCampaignHandler(svc *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{Service: svc}
}

func campaignID(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var notFound *appErrors.ErrCampaignNotFound
	var leadNotFound *appErrors.ErrLeadNotFound
	var agentNotFound *appErrors.ErrAgentNotFound
	var invalidTransition *appErrors.ErrInvalidTransition
	var invalidConfig *appErrors.ErrInvalidConfig

	switch {
	case errors.As(err, &notFound), errors.As(err, &leadNotFound), errors.As(err, &agentNotFound):
		return http.StatusNotFound
	case errors.As(err, &invalidTransition):
		return http.StatusConflict
	case errors.As(err, &invalidConfig):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// CreateCampaignHandler handles creating a new campaign from a draft
func (h *CampaignHandler) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	var draft model.CampaignDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := h.Service.CreateCampaign(draft)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, campaign)
}

// UpdateCampaignHandler edits a campaign definition
func (h *CampaignHandler) UpdateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	var draft model.CampaignDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := h.Service.UpdateCampaign(id, draft)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, campaign)
}

// ListCampaignsHandler returns a paginated list of campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := h.Service.ListCampaigns(page, pageSize, status)
	if err != nil {
		http.Error(w, "failed to fetch campaigns: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// GetCampaignHandler returns details of a single campaign by ID
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.Service.GetCampaignDetails(id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, campaign)
}

// StartCampaignHandler launches dispatch; starting an Active campaign is a
// no-op success.
func (h *CampaignHandler) StartCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.Service.StartCampaign(id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, campaign)
}

// PauseCampaignHandler stops new dispatches for the campaign
func (h *CampaignHandler) PauseCampaignHandler(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.PauseCampaign)
}

// ResumeCampaignHandler resumes a paused campaign
func (h *CampaignHandler) ResumeCampaignHandler(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.ResumeCampaign)
}

// FinishCampaignHandler manually completes a campaign
func (h *CampaignHandler) FinishCampaignHandler(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.Service.FinishCampaign)
}

func (h *CampaignHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(int) error) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}
	if err := op(id); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	snap, err := h.Service.GetCampaignSnapshot(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, snap)
}

// GetSnapshotHandler returns the campaign's status, stats and audience size
func (h *CampaignHandler) GetSnapshotHandler(w http.ResponseWriter, r *http.Request) {
	id, err := campaignID(r)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	snap, err := h.Service.GetCampaignSnapshot(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, snap)
}
