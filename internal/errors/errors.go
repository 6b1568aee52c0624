// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrLeadNotFound reports a missing lead.
type ErrLeadNotFound struct {
	LeadID int
}

func (e *ErrLeadNotFound) Error() string {
	return fmt.Sprintf("lead with ID %d not found", e.LeadID)
}

func NewLeadNotFound(id int) error {
	return &ErrLeadNotFound{LeadID: id}
}

// ErrAgentNotFound reports a missing voice agent.
type ErrAgentNotFound struct {
	AgentID int
}

func (e *ErrAgentNotFound) Error() string {
	return fmt.Sprintf("agent with ID %d not found", e.AgentID)
}

func NewAgentNotFound(id int) error {
	return &ErrAgentNotFound{AgentID: id}
}

// ErrInvalidTransition reports a lifecycle event that is not legal from the
// campaign's current status. The campaign state is left unchanged.
type ErrInvalidTransition struct {
	From  string
	Event string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: event %q not allowed from status %q", e.Event, e.From)
}

func NewInvalidTransition(from, event string) error {
	return &ErrInvalidTransition{From: from, Event: event}
}

// ErrInvalidConfig reports a campaign configuration rejected at create/edit
// time (bad pacing or schedule), never at dispatch time.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func NewInvalidConfig(field, reason string) error {
	return &ErrInvalidConfig{Field: field, Reason: reason}
}
