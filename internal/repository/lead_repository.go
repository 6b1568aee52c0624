package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/aetherdial/dial-engine/internal/errors"
	"github.com/aetherdial/dial-engine/internal/model"
)

// LeadRepositoryInterface defines the lead and group reads the engine needs
type LeadRepositoryInterface interface {
	ListAll() ([]model.Lead, error)
	ListGroups() ([]model.LeadGroup, error)
	GetByID(id int) (*model.Lead, error)
	Create(l *model.Lead) error
	UpdateStatus(id int, status model.LeadStatus) error
	RecordAttempt(id int, at time.Time) error
}

// LeadRepository is the concrete Postgres implementation
type LeadRepository struct {
	DB *sql.DB
}

// ListAll fetches all leads with their group memberships
func (r *LeadRepository) ListAll() ([]model.Lead, error) {
	query := `
        SELECT id, name, phone, status, last_attempt, created_at
        FROM leads
        ORDER BY id
    `
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []model.Lead{}
	byID := map[int]int{}
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Status, &l.LastAttempt, &l.CreatedAt); err != nil {
			return nil, err
		}
		byID[l.ID] = len(leads)
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	memberQuery := `SELECT lead_id, group_id FROM lead_group_members`
	memberRows, err := r.DB.Query(memberQuery)
	if err != nil {
		return nil, err
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var leadID, groupID int
		if err := memberRows.Scan(&leadID, &groupID); err != nil {
			return nil, err
		}
		if idx, ok := byID[leadID]; ok {
			leads[idx].GroupIDs = append(leads[idx].GroupIDs, groupID)
		}
	}
	return leads, memberRows.Err()
}

// ListGroups fetches all lead groups
func (r *LeadRepository) ListGroups() ([]model.LeadGroup, error) {
	rows, err := r.DB.Query(`SELECT id, name FROM lead_groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []model.LeadGroup{}
	for rows.Next() {
		var g model.LeadGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetByID fetches a lead by ID
func (r *LeadRepository) GetByID(id int) (*model.Lead, error) {
	query := `
        SELECT id, name, phone, status, last_attempt, created_at
        FROM leads
        WHERE id = $1
    `
	var l model.Lead
	err := r.DB.QueryRow(query, id).Scan(&l.ID, &l.Name, &l.Phone, &l.Status, &l.LastAttempt, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewLeadNotFound(id)
		}
		return nil, err
	}

	rows, err := r.DB.Query(`SELECT group_id FROM lead_group_members WHERE lead_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var gid int
		if err := rows.Scan(&gid); err != nil {
			return nil, err
		}
		l.GroupIDs = append(l.GroupIDs, gid)
	}
	return &l, rows.Err()
}

// Create inserts a lead and its group memberships
func (r *LeadRepository) Create(l *model.Lead) error {
	l.CreatedAt = time.Now()
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	query := `
        INSERT INTO leads (name, phone, status, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	if err := r.DB.QueryRow(query, l.Name, l.Phone, l.Status, l.CreatedAt).Scan(&l.ID); err != nil {
		return err
	}
	for _, gid := range l.GroupIDs {
		if _, err := r.DB.Exec(
			`INSERT INTO lead_group_members (lead_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			l.ID, gid,
		); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus sets a lead's funnel status
func (r *LeadRepository) UpdateStatus(id int, status model.LeadStatus) error {
	_, err := r.DB.Exec(`UPDATE leads SET status=$1 WHERE id=$2`, status, id)
	return err
}

// RecordAttempt stamps the lead's last dial attempt
func (r *LeadRepository) RecordAttempt(id int, at time.Time) error {
	_, err := r.DB.Exec(`UPDATE leads SET last_attempt=$1 WHERE id=$2`, at, id)
	return err
}
