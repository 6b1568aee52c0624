package model

import (
	"time"
)

// CampaignStatus enumerates lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused, CampaignStatusCompleted:
		return true
	}
	return false
}

// CampaignTarget is a declarative selector over leads: group membership plus
// individual overrides. It is resolved into an audience, never stored as a
// materialized list.
type CampaignTarget struct {
	GroupIDs []int `json:"group_ids"`
	LeadIDs  []int `json:"lead_ids"`
}

// Pacing bounds a campaign's dispatch stream: a global gap between
// consecutive dispatches and a cap on calls in flight.
type Pacing struct {
	GapMinutes    float64 `json:"gap_minutes"`
	MaxConcurrent int     `json:"max_concurrent"`
}

// Gap returns the inter-dispatch gap as a duration.
func (p Pacing) Gap() time.Duration {
	return time.Duration(p.GapMinutes * float64(time.Minute))
}

// ScheduleWindow restricts dispatch to a same-day time range on a set of
// weekdays. Start and End are minutes from midnight, Start < End.
type ScheduleWindow struct {
	StartMinute int            `json:"start_minute"`
	EndMinute   int            `json:"end_minute"`
	Weekdays    []time.Weekday `json:"weekdays"`
}

// AllowsWeekday reports whether d is one of the window's dial days.
func (w ScheduleWindow) AllowsWeekday(d time.Weekday) bool {
	for _, wd := range w.Weekdays {
		if wd == d {
			return true
		}
	}
	return false
}

// CampaignStats aggregates call outcomes for one campaign.
// Invariant: Attempted >= Connected >= Bookings.
type CampaignStats struct {
	TotalLeads  int     `json:"total_leads"`
	Attempted   int     `json:"attempted"`
	Connected   int     `json:"connected"`
	Bookings    int     `json:"bookings"`
	AvgTalkTime float64 `json:"avg_talk_time"`
}

// CampaignDraft is an unsaved campaign definition: no id, no stats. It
// becomes a Campaign through an explicit create.
type CampaignDraft struct {
	Name     string         `json:"name"`
	AgentID  int            `json:"agent_id"`
	Target   CampaignTarget `json:"target"`
	Pacing   Pacing         `json:"pacing"`
	Schedule ScheduleWindow `json:"schedule"`
}

type Campaign struct {
	ID        int            `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	AgentID   int            `db:"agent_id" json:"agent_id"`
	Target    CampaignTarget `db:"-" json:"target"`
	Pacing    Pacing         `db:"-" json:"pacing"`
	Schedule  ScheduleWindow `db:"-" json:"schedule"`
	Status    CampaignStatus `db:"status" json:"status"`
	Stats     CampaignStats  `db:"-" json:"stats"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// CallOutcome is the result the dialer reports for one completed call.
type CallOutcome struct {
	Connected       bool    `json:"connected"`
	TalkTimeSeconds float64 `json:"talk_time_seconds"`
	Booked          bool    `json:"booked"`
}
