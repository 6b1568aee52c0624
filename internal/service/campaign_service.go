// internal/service/campaign_service.go
package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/aetherdial/dial-engine/internal/cache"
	"github.com/aetherdial/dial-engine/internal/dialer"
	"github.com/aetherdial/dial-engine/internal/engine"
	appErrors "github.com/aetherdial/dial-engine/internal/errors"
	"github.com/aetherdial/dial-engine/internal/model"
	"github.com/aetherdial/dial-engine/internal/queue"
	"github.com/aetherdial/dial-engine/internal/repository"
)

// CampaignService owns campaign lifecycle and the live dispatch schedulers of
// Active campaigns. One scheduler per Active campaign; campaigns never share
// pacing budgets or locks.
type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	AgentRepo    repository.AgentRepositoryInterface
	Dialer       dialer.Dialer
	Clock        engine.Clock
	Queue        queue.Queue
	Cache        cache.Cache
	Stats        *engine.StatsAggregator

	mu         sync.Mutex
	schedulers map[int]*engine.Scheduler
}

func NewCampaignService(
	campaignRepo repository.CampaignRepositoryInterface,
	leadRepo repository.LeadRepositoryInterface,
	agentRepo repository.AgentRepositoryInterface,
	d dialer.Dialer,
	clock engine.Clock,
	q queue.Queue,
	c cache.Cache,
) *CampaignService {
	return &CampaignService{
		CampaignRepo: campaignRepo,
		LeadRepo:     leadRepo,
		AgentRepo:    agentRepo,
		Dialer:       d,
		Clock:        clock,
		Queue:        q,
		Cache:        c,
		Stats:        engine.NewStatsAggregator(),
		schedulers:   make(map[int]*engine.Scheduler),
	}
}

// CampaignSnapshot is what the management surface sees for one campaign.
type CampaignSnapshot struct {
	CampaignID   int                  `json:"campaign_id"`
	Status       model.CampaignStatus `json:"status"`
	Stats        model.CampaignStats  `json:"stats"`
	AudienceSize int                  `json:"audience_size"`
	Remaining    int                  `json:"remaining"`
}

// validateConfig rejects bad pacing and schedule at create/edit time so
// dispatch never has to.
func validateConfig(draft model.CampaignDraft) error {
	if draft.Pacing.GapMinutes < 0 {
		return appErrors.NewInvalidConfig("pacing.gap_minutes", "must be non-negative")
	}
	if draft.Pacing.MaxConcurrent < 1 {
		return appErrors.NewInvalidConfig("pacing.max_concurrent", "must be at least 1")
	}
	if draft.Schedule.StartMinute >= draft.Schedule.EndMinute {
		return appErrors.NewInvalidConfig("schedule", "start must be before end")
	}
	if draft.Schedule.StartMinute < 0 || draft.Schedule.EndMinute > 24*60 {
		return appErrors.NewInvalidConfig("schedule", "must fall within a single day")
	}
	if len(draft.Schedule.Weekdays) == 0 {
		return appErrors.NewInvalidConfig("schedule.weekdays", "must list at least one weekday")
	}
	return nil
}

// CreateCampaign turns a draft into a persisted campaign in Draft status with
// zeroed stats; total_leads reflects the audience the target resolves to
// right now.
func (s *CampaignService) CreateCampaign(draft model.CampaignDraft) (*model.Campaign, error) {
	if err := validateConfig(draft); err != nil {
		return nil, err
	}
	agent, err := s.AgentRepo.GetByID(draft.AgentID)
	if err != nil {
		return nil, err
	}
	if !agent.IsActive {
		return nil, appErrors.NewInvalidConfig("agent_id", "references an inactive agent")
	}

	total, err := s.resolveAudienceSize(draft.Target)
	if err != nil {
		return nil, err
	}

	c := &model.Campaign{
		Name:     draft.Name,
		AgentID:  draft.AgentID,
		Target:   draft.Target,
		Pacing:   draft.Pacing,
		Schedule: draft.Schedule,
		Status:   model.CampaignStatusDraft,
		Stats:    model.CampaignStats{TotalLeads: total},
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCampaign edits a campaign's definition. Target changes recompute
// total_leads only while the campaign is not Active: an Active run keeps its
// frozen audience, and pacing/schedule edits reach its scheduler so they
// apply to subsequent dispatches only.
func (s *CampaignService) UpdateCampaign(id int, draft model.CampaignDraft) (*model.Campaign, error) {
	if err := validateConfig(draft); err != nil {
		return nil, err
	}
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status == model.CampaignStatusCompleted {
		return nil, appErrors.NewInvalidTransition(c.Status.String(), "edit")
	}

	c.Name = draft.Name
	c.AgentID = draft.AgentID
	c.Target = draft.Target
	c.Pacing = draft.Pacing
	c.Schedule = draft.Schedule

	if err := s.CampaignRepo.Update(c); err != nil {
		return nil, err
	}

	// An Active run keeps its frozen audience and its live counters;
	// definition updates never touch the stats document.
	if c.Status != model.CampaignStatusActive {
		total, err := s.resolveAudienceSize(draft.Target)
		if err != nil {
			return nil, err
		}
		c.Stats.TotalLeads = total
		if err := s.CampaignRepo.UpdateStats(id, c.Stats); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	sched, running := s.schedulers[id]
	s.mu.Unlock()
	if running {
		sched.SetPacing(draft.Pacing)
		sched.SetSchedule(draft.Schedule)
	}

	s.invalidateSnapshot(id)
	return c, nil
}

func (s *CampaignService) resolveAudienceSize(target model.CampaignTarget) (int, error) {
	leads, err := s.LeadRepo.ListAll()
	if err != nil {
		return 0, err
	}
	groups, err := s.LeadRepo.ListGroups()
	if err != nil {
		return 0, err
	}
	return len(engine.ResolveAudience(leads, groups, target)), nil
}

// StartCampaign resolves and freezes the audience and launches the dispatch
// scheduler. Starting an already-Active campaign is a no-op, not an error.
// The whole read-transition-launch sequence holds s.mu so concurrent starts
// serialize and at most one scheduler is ever launched per campaign.
func (s *CampaignService) StartCampaign(id int) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status == model.CampaignStatusActive {
		return c, nil
	}

	next, err := engine.Transition(c.Status, engine.EventStart)
	if err != nil {
		return nil, err
	}

	leads, err := s.LeadRepo.ListAll()
	if err != nil {
		return nil, err
	}
	groups, err := s.LeadRepo.ListGroups()
	if err != nil {
		return nil, err
	}
	audience := engine.ResolveAudience(leads, groups, c.Target)

	c.Status = next
	c.Stats.TotalLeads = len(audience)
	s.Stats.Seed(id, c.Stats)

	if err := s.CampaignRepo.UpdateStats(id, c.Stats); err != nil {
		return nil, err
	}
	if err := s.CampaignRepo.UpdateStatus(id, next); err != nil {
		return nil, err
	}

	sched := engine.NewScheduler(engine.SchedulerConfig{
		CampaignID: id,
		AgentID:    c.AgentID,
		Audience:   audience,
		Pacing:     c.Pacing,
		Schedule:   c.Schedule,
	}, s.Dialer, s.Clock, s.Stats, engine.SchedulerHooks{
		OnDispatch:  s.onDispatch,
		OnOutcome:   s.onOutcome,
		OnLeadError: s.onLeadError,
		OnComplete:  s.onComplete,
	})

	s.schedulers[id] = sched
	sched.Start()
	s.publishStatus(id, next)
	s.invalidateSnapshot(id)
	log.Printf("🚀 campaign %d started with %d leads", id, len(audience))
	return c, nil
}

// PauseCampaign stops new dispatches; in-flight calls run to completion.
func (s *CampaignService) PauseCampaign(id int) error {
	return s.transition(id, engine.EventPause, func(sched *engine.Scheduler) {
		if sched != nil {
			sched.Pause()
		}
	})
}

// ResumeCampaign continues dispatching against the run's frozen audience.
func (s *CampaignService) ResumeCampaign(id int) error {
	return s.transition(id, engine.EventResume, func(sched *engine.Scheduler) {
		if sched != nil {
			sched.Resume()
		}
	})
}

// FinishCampaign manually completes a campaign from Active or Paused.
func (s *CampaignService) FinishCampaign(id int) error {
	err := s.transition(id, engine.EventFinish, func(sched *engine.Scheduler) {
		if sched == nil {
			return
		}
		sched.Stop()
		go func() {
			<-sched.Done()
			s.retire(id)
		}()
	})
	return err
}

// transition validates and applies one lifecycle event, persists the new
// status, and lets the caller poke the live scheduler.
func (s *CampaignService) transition(id int, event engine.LifecycleEvent, apply func(*engine.Scheduler)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	next, err := engine.Transition(c.Status, event)
	if err != nil {
		return err
	}
	if err := s.CampaignRepo.UpdateStatus(id, next); err != nil {
		return err
	}

	apply(s.schedulers[id])

	s.publishStatus(id, next)
	s.invalidateSnapshot(id)
	log.Printf("ℹ️ campaign %d: %s → %s", id, c.Status, next)
	return nil
}

// onComplete fires when a run drains its audience and all in-flight calls
// have completed: the campaign auto-transitions to Completed.
func (s *CampaignService) onComplete(campaignID int) {
	s.mu.Lock()
	c, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		s.mu.Unlock()
		log.Printf("⚠️ auto-complete: failed to load campaign %d: %v", campaignID, err)
		return
	}
	next, err := engine.Transition(c.Status, engine.EventFinish)
	if err != nil {
		// Already finished manually; nothing to do.
		s.mu.Unlock()
		return
	}
	if err := s.CampaignRepo.UpdateStatus(campaignID, next); err != nil {
		log.Printf("⚠️ auto-complete: failed to persist status for campaign %d: %v", campaignID, err)
	}
	s.mu.Unlock()

	s.publishStatus(campaignID, next)
	s.retire(campaignID)
	log.Printf("✅ campaign %d completed", campaignID)
}

// retire persists final stats and drops the campaign's live state.
func (s *CampaignService) retire(campaignID int) {
	stats := s.Stats.Snapshot(campaignID)
	if err := s.CampaignRepo.UpdateStats(campaignID, stats); err != nil {
		log.Printf("⚠️ failed to persist final stats for campaign %d: %v", campaignID, err)
	}
	s.Stats.Drop(campaignID)

	s.mu.Lock()
	delete(s.schedulers, campaignID)
	s.mu.Unlock()
	s.invalidateSnapshot(campaignID)
}

func (s *CampaignService) onDispatch(campaignID, leadID int, callID string) {
	if err := s.LeadRepo.RecordAttempt(leadID, s.Clock.Now()); err != nil {
		log.Printf("⚠️ failed to stamp attempt for lead %d: %v", leadID, err)
	}
	s.publish(queue.CallEvent{
		Type:       queue.EventDispatched,
		CampaignID: campaignID,
		LeadID:     leadID,
		CallID:     callID,
		At:         s.Clock.Now(),
	})
}

func (s *CampaignService) onOutcome(campaignID, leadID int, callID string, outcome model.CallOutcome) {
	if err := s.CampaignRepo.UpdateStats(campaignID, s.Stats.Snapshot(campaignID)); err != nil {
		log.Printf("⚠️ failed to persist stats for campaign %d: %v", campaignID, err)
	}
	s.publish(queue.CallEvent{
		Type:       queue.EventOutcome,
		CampaignID: campaignID,
		LeadID:     leadID,
		CallID:     callID,
		Outcome:    &outcome,
		At:         s.Clock.Now(),
	})
	s.invalidateSnapshot(campaignID)
}

func (s *CampaignService) onLeadError(campaignID, leadID int, callID string, err error) {
	if updateErr := s.LeadRepo.UpdateStatus(leadID, model.LeadStatusError); updateErr != nil {
		log.Printf("⚠️ failed to mark lead %d errored: %v", leadID, updateErr)
	}
	s.publish(queue.CallEvent{
		Type:       queue.EventLeadError,
		CampaignID: campaignID,
		LeadID:     leadID,
		CallID:     callID,
		Error:      err.Error(),
		At:         s.Clock.Now(),
	})
}

func (s *CampaignService) publishStatus(campaignID int, status model.CampaignStatus) {
	s.publish(queue.CallEvent{
		Type:       queue.EventCampaignStatus,
		CampaignID: campaignID,
		Status:     status,
		At:         s.Clock.Now(),
	})
}

func (s *CampaignService) publish(ev queue.CallEvent) {
	if s.Queue == nil {
		return
	}
	if err := s.Queue.Publish(queue.TopicCallEvents, ev); err != nil {
		log.Printf("⚠️ failed to publish %s event for campaign %d: %v", ev.Type, ev.CampaignID, err)
	}
}

// GetCampaignSnapshot returns status, stats and audience size for one
// campaign, read through the snapshot cache. Live campaigns report the
// in-memory aggregator's counters; others report persisted stats.
func (s *CampaignService) GetCampaignSnapshot(ctx context.Context, id int) (*CampaignSnapshot, error) {
	key := cache.SnapshotKey(id)
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, key); err == nil {
			var snap CampaignSnapshot
			if err := json.Unmarshal(raw, &snap); err == nil {
				return &snap, nil
			}
		}
	}

	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	snap := &CampaignSnapshot{
		CampaignID: id,
		Status:     c.Status,
		Stats:      c.Stats,
	}

	s.mu.Lock()
	sched, running := s.schedulers[id]
	s.mu.Unlock()
	if running {
		snap.Stats = s.Stats.Snapshot(id)
		snap.Remaining = sched.Remaining()
	}
	snap.AudienceSize = snap.Stats.TotalLeads

	if s.Cache != nil {
		if raw, err := json.Marshal(snap); err == nil {
			if err := s.Cache.Set(ctx, key, raw, cache.TTLSnapshot); err != nil {
				log.Printf("⚠️ failed to cache snapshot for campaign %d: %v", id, err)
			}
		}
	}
	return snap, nil
}

func (s *CampaignService) invalidateSnapshot(campaignID int) {
	if s.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Cache.Delete(ctx, cache.SnapshotKey(campaignID)); err != nil {
		log.Printf("⚠️ failed to invalidate snapshot for campaign %d: %v", campaignID, err)
	}
}

// GetCampaignDetails fetches a campaign by ID
func (s *CampaignService) GetCampaignDetails(id int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	_, running := s.schedulers[id]
	s.mu.Unlock()
	if running {
		c.Stats = s.Stats.Snapshot(id)
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}
