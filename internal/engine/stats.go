package engine

import (
	"fmt"
	"sync"

	"github.com/aetherdial/dial-engine/internal/model"
)

// StatsAggregator accumulates call outcomes per campaign. Outcomes for one
// campaign can arrive concurrently (up to MaxConcurrent calls complete out of
// order), so each campaign's counters are guarded by their own mutex and
// updates are linearized. Invariant: attempted >= connected >= bookings.
type StatsAggregator struct {
	mu        sync.RWMutex
	campaigns map[int]*campaignStats
}

type campaignStats struct {
	mu    sync.Mutex
	stats model.CampaignStats
}

func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{campaigns: make(map[int]*campaignStats)}
}

func (a *StatsAggregator) entry(campaignID int) *campaignStats {
	a.mu.RLock()
	e, ok := a.campaigns[campaignID]
	a.mu.RUnlock()
	if ok {
		return e
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok = a.campaigns[campaignID]; ok {
		return e
	}
	e = &campaignStats{}
	a.campaigns[campaignID] = e
	return e
}

// Seed installs a campaign's persisted stats, e.g. when resuming after a
// restart. It overwrites any counters already held in memory.
func (a *StatsAggregator) Seed(campaignID int, stats model.CampaignStats) {
	e := a.entry(campaignID)
	e.mu.Lock()
	e.stats = stats
	e.mu.Unlock()
}

// SetTotalLeads records the audience size for the campaign.
func (a *StatsAggregator) SetTotalLeads(campaignID, total int) {
	e := a.entry(campaignID)
	e.mu.Lock()
	e.stats.TotalLeads = total
	e.mu.Unlock()
}

// RecordOutcome folds one completed call into the campaign's stats. A booked
// outcome that is not connected violates the dialer contract and is rejected
// without touching any counter.
func (a *StatsAggregator) RecordOutcome(campaignID int, outcome model.CallOutcome) error {
	if outcome.Booked && !outcome.Connected {
		return fmt.Errorf("invalid outcome for campaign %d: booked without connected", campaignID)
	}

	e := a.entry(campaignID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.Attempted++
	if outcome.Connected {
		e.stats.Connected++
		// Incremental mean keeps AvgTalkTime exact without storing samples.
		e.stats.AvgTalkTime += (outcome.TalkTimeSeconds - e.stats.AvgTalkTime) / float64(e.stats.Connected)
	}
	if outcome.Booked {
		e.stats.Bookings++
	}
	return nil
}

// Snapshot returns a copy of the campaign's current stats.
func (a *StatsAggregator) Snapshot(campaignID int) model.CampaignStats {
	e := a.entry(campaignID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Drop forgets a campaign's in-memory counters, e.g. after its final stats
// have been persisted.
func (a *StatsAggregator) Drop(campaignID int) {
	a.mu.Lock()
	delete(a.campaigns, campaignID)
	a.mu.Unlock()
}
