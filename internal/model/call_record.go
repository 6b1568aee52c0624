package model

import "time"

// CallStatus enumerates lifecycle stages for an individual dispatch.
type CallStatus string

const (
	CallStatusDispatched CallStatus = "dispatched"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusRetrying   CallStatus = "retrying"
	CallStatusFailed     CallStatus = "failed"
)

func (s CallStatus) IsValid() bool {
	switch s {
	case CallStatusDispatched, CallStatusCompleted, CallStatusRetrying, CallStatusFailed:
		return true
	}
	return false
}

// CallRecord is the persisted trace of one dispatch handed to the dialer.
type CallRecord struct {
	ID              int        `db:"id" json:"id"`
	CallID          string     `db:"call_id" json:"call_id"`
	CampaignID      int        `db:"campaign_id" json:"campaign_id"`
	LeadID          int        `db:"lead_id" json:"lead_id"`
	Status          CallStatus `db:"status" json:"status"`
	Connected       bool       `db:"connected" json:"connected"`
	Booked          bool       `db:"booked" json:"booked"`
	TalkTimeSeconds float64    `db:"talk_time_seconds" json:"talk_time_seconds"`
	LastError       string     `db:"last_error" json:"last_error,omitempty"`
	RetryCount      int        `db:"retry_count" json:"retry_count"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
