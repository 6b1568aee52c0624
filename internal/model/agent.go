package model

// AgentPlatform identifies the voice-agent provider an agent runs on.
type AgentPlatform string

const (
	AgentPlatformVapi   AgentPlatform = "vapi"
	AgentPlatformRetell AgentPlatform = "retell"
)

func (p AgentPlatform) IsValid() bool {
	switch p {
	case AgentPlatformVapi, AgentPlatformRetell:
		return true
	}
	return false
}

// Agent is a configured voice agent on an external platform. The engine only
// needs its id and active flag; the aggregate counters in AgentStats are
// derived from call records for reporting.
type Agent struct {
	ID              int           `db:"id" json:"id"`
	Name            string        `db:"name" json:"name"`
	Platform        AgentPlatform `db:"platform" json:"platform"`
	IsActive        bool          `db:"is_active" json:"is_active"`
	ProviderAgentID string        `db:"provider_agent_id" json:"provider_agent_id"`
}

// AgentStats aggregates an agent's call records across all its campaigns.
type AgentStats struct {
	AgentID            int     `json:"agent_id"`
	Calls              int     `json:"calls"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	BookingRate        float64 `json:"booking_rate"`
}
