package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aetherdial/dial-engine/internal/model"
	"github.com/aetherdial/dial-engine/internal/repository"
)

// LeadHandler serves the lead, lead group and agent CRUD surface the
// management console uses.
type LeadHandler struct {
	LeadRepo  repository.LeadRepositoryInterface
	AgentRepo repository.AgentRepositoryInterface
}

// ListLeadsHandler returns all leads with their group memberships
func (h *LeadHandler) ListLeadsHandler(w http.ResponseWriter, r *http.Request) {
	leads, err := h.LeadRepo.ListAll()
	if err != nil {
		http.Error(w, "failed to fetch leads: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"data": leads})
}

// CreateLeadHandler inserts a new lead
func (h *LeadHandler) CreateLeadHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		GroupIDs []int  `json:"group_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Name == "" || payload.Phone == "" {
		http.Error(w, "name and phone are required", http.StatusBadRequest)
		return
	}

	lead := &model.Lead{
		Name:     payload.Name,
		Phone:    payload.Phone,
		Status:   model.LeadStatusNew,
		GroupIDs: payload.GroupIDs,
	}
	if err := h.LeadRepo.Create(lead); err != nil {
		http.Error(w, "failed to create lead: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, lead)
}

// ListLeadGroupsHandler returns all lead groups
func (h *LeadHandler) ListLeadGroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := h.LeadRepo.ListGroups()
	if err != nil {
		http.Error(w, "failed to fetch lead groups: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"data": groups})
}

// ListAgentsHandler returns all configured voice agents
func (h *LeadHandler) ListAgentsHandler(w http.ResponseWriter, r *http.Request) {
	agents, err := h.AgentRepo.ListAll()
	if err != nil {
		http.Error(w, "failed to fetch agents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]interface{}{"data": agents})
}

// GetAgentStatsHandler returns call aggregates for one agent across campaigns
func (h *LeadHandler) GetAgentStatsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid agent id", http.StatusBadRequest)
		return
	}

	stats, err := h.AgentRepo.StatsFor(id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, stats)
}
