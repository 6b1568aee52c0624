package model

import "time"

// LeadStatus tracks where a lead sits in the contact funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusAttempted LeadStatus = "attempted"
	LeadStatusConnected LeadStatus = "connected"
	LeadStatusBooked    LeadStatus = "booked"
	LeadStatusDNC       LeadStatus = "dnc"
	LeadStatusError     LeadStatus = "error"
)

func (s LeadStatus) String() string { return string(s) }

func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusNew, LeadStatusAttempted, LeadStatusConnected,
		LeadStatusBooked, LeadStatusDNC, LeadStatusError:
		return true
	}
	return false
}

type Lead struct {
	ID          int        `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Phone       string     `db:"phone" json:"phone"`
	Status      LeadStatus `db:"status" json:"status"`
	GroupIDs    []int      `db:"-" json:"group_ids"`
	LastAttempt *time.Time `db:"last_attempt" json:"last_attempt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// LeadGroup is a pure label; leads reference groups, not the other way around.
type LeadGroup struct {
	ID   int    `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
