package repository

import (
	"database/sql"
	"time"

	"github.com/aetherdial/dial-engine/internal/model"
)

// CallRecordRepositoryInterface defines the persistence the worker needs for
// per-dispatch traces.
type CallRecordRepositoryInterface interface {
	Create(rec *model.CallRecord) error
	GetByCallID(callID string) (*model.CallRecord, error)
	Update(rec *model.CallRecord) error
}

type CallRecordRepository struct {
	DB *sql.DB
}

// Create inserts a new call record and returns the created ID
func (r *CallRecordRepository) Create(rec *model.CallRecord) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `
        INSERT INTO call_records
        (call_id, campaign_id, lead_id, status, connected, booked, talk_time_seconds, last_error, retry_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		rec.CallID,
		rec.CampaignID,
		rec.LeadID,
		rec.Status,
		rec.Connected,
		rec.Booked,
		rec.TalkTimeSeconds,
		rec.LastError,
		rec.RetryCount,
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&rec.ID)
}

// GetByCallID fetches a call record by its dialer call id
func (r *CallRecordRepository) GetByCallID(callID string) (*model.CallRecord, error) {
	query := `
        SELECT id, call_id, campaign_id, lead_id, status, connected, booked, talk_time_seconds, last_error, retry_count, created_at, updated_at
        FROM call_records
        WHERE call_id=$1
    `
	var rec model.CallRecord
	err := r.DB.QueryRow(query, callID).Scan(
		&rec.ID,
		&rec.CallID,
		&rec.CampaignID,
		&rec.LeadID,
		&rec.Status,
		&rec.Connected,
		&rec.Booked,
		&rec.TalkTimeSeconds,
		&rec.LastError,
		&rec.RetryCount,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &rec, nil
}

// Update updates an existing call record (status, outcome fields, errors)
func (r *CallRecordRepository) Update(rec *model.CallRecord) error {
	rec.UpdatedAt = time.Now()
	query := `
        UPDATE call_records
        SET status=$1, connected=$2, booked=$3, talk_time_seconds=$4, last_error=$5, retry_count=$6, updated_at=$7
        WHERE id=$8
    `
	_, err := r.DB.Exec(query, rec.Status, rec.Connected, rec.Booked, rec.TalkTimeSeconds, rec.LastError, rec.RetryCount, rec.UpdatedAt, rec.ID)
	return err
}
