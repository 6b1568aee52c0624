package repository

import (
	"database/sql"

	appErrors "github.com/aetherdial/dial-engine/internal/errors"
	"github.com/aetherdial/dial-engine/internal/model"
)

// AgentRepositoryInterface defines methods used by service
type AgentRepositoryInterface interface {
	GetByID(id int) (*model.Agent, error)
	ListAll() ([]model.Agent, error)
	StatsFor(agentID int) (*model.AgentStats, error)
}

// AgentRepository is the concrete implementation
type AgentRepository struct {
	DB *sql.DB
}

// GetByID fetches an agent by ID
func (r *AgentRepository) GetByID(id int) (*model.Agent, error) {
	query := `
        SELECT id, name, platform, is_active, provider_agent_id
        FROM agents
        WHERE id = $1
    `
	var a model.Agent
	err := r.DB.QueryRow(query, id).Scan(&a.ID, &a.Name, &a.Platform, &a.IsActive, &a.ProviderAgentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewAgentNotFound(id)
		}
		return nil, err
	}
	return &a, nil
}

// ListAll fetches all agents
func (r *AgentRepository) ListAll() ([]model.Agent, error) {
	query := `
        SELECT id, name, platform, is_active, provider_agent_id
        FROM agents
        ORDER BY id
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := []model.Agent{}
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.Platform, &a.IsActive, &a.ProviderAgentID); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// StatsFor aggregates the agent's completed call records across campaigns.
// Booking rate is bookings per connected call.
func (r *AgentRepository) StatsFor(agentID int) (*model.AgentStats, error) {
	if _, err := r.GetByID(agentID); err != nil {
		return nil, err
	}

	query := `
        SELECT
            COUNT(*) FILTER (WHERE r.status = 'completed'),
            COALESCE(AVG(r.talk_time_seconds) FILTER (WHERE r.connected), 0),
            COUNT(*) FILTER (WHERE r.connected),
            COUNT(*) FILTER (WHERE r.booked)
        FROM call_records r
        JOIN campaigns c ON c.id = r.campaign_id
        WHERE c.agent_id = $1
    `
	stats := &model.AgentStats{AgentID: agentID}
	var connected, booked int
	err := r.DB.QueryRow(query, agentID).Scan(&stats.Calls, &stats.AvgDurationSeconds, &connected, &booked)
	if err != nil {
		return nil, err
	}
	if connected > 0 {
		stats.BookingRate = float64(booked) / float64(connected)
	}
	return stats, nil
}
