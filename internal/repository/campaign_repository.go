package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/aetherdial/dial-engine/internal/errors"
	"github.com/aetherdial/dial-engine/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)
	Update(c *model.Campaign) error
	UpdateStatus(campaignID int, status model.CampaignStatus) error
	UpdateStats(campaignID int, stats model.CampaignStats) error
}

type CampaignRepository struct {
	DB *sql.DB
}

// Target, pacing and schedule are declarative selectors, not relational
// data, so they are stored as JSON documents alongside the flat columns.

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	target, pacing, schedule, stats, err := marshalCampaignDocs(c)
	if err != nil {
		return err
	}
	query := `
        INSERT INTO campaigns (name, agent_id, status, target, pacing, schedule, stats, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.Name, c.AgentID, c.Status, target, pacing, schedule, stats, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `
        SELECT id, name, agent_id, status, target, pacing, schedule, stats, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT id, name, agent_id, status, target, pacing, schedule, stats, created_at, updated_at FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	countArgs := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		countArgs = append(countArgs, status)
	}
	var total int
	if err := r.DB.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// Update persists the campaign definition. Stats are deliberately excluded:
// they move through UpdateStats only, so a definition edit can never clobber
// counters written concurrently by outcome handling.
func (r *CampaignRepository) Update(c *model.Campaign) error {
	target, pacing, schedule, _, err := marshalCampaignDocs(c)
	if err != nil {
		return err
	}
	query := `
        UPDATE campaigns
        SET name=$1, agent_id=$2, target=$3, pacing=$4, schedule=$5, updated_at=NOW()
        WHERE id=$6
    `
	_, err = r.DB.Exec(query, c.Name, c.AgentID, target, pacing, schedule, c.ID)
	return err
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

func (r *CampaignRepository) UpdateStats(campaignID int, stats model.CampaignStats) error {
	doc, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	query := `UPDATE campaigns SET stats=$1, updated_at=$2 WHERE id=$3`
	_, err = r.DB.Exec(query, doc, time.Now(), campaignID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var target, pacing, schedule, stats []byte
	err := row.Scan(&c.ID, &c.Name, &c.AgentID, &c.Status, &target, &pacing, &schedule, &stats, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(target, &c.Target); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pacing, &c.Pacing); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(schedule, &c.Schedule); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stats, &c.Stats); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalCampaignDocs(c *model.Campaign) (target, pacing, schedule, stats []byte, err error) {
	if target, err = json.Marshal(c.Target); err != nil {
		return
	}
	if pacing, err = json.Marshal(c.Pacing); err != nil {
		return
	}
	if schedule, err = json.Marshal(c.Schedule); err != nil {
		return
	}
	stats, err = json.Marshal(c.Stats)
	return
}
