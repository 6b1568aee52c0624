package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aetherdial/dial-engine/internal/cache"
	"github.com/aetherdial/dial-engine/internal/dialer"
	"github.com/aetherdial/dial-engine/internal/engine"
	appErrors "github.com/aetherdial/dial-engine/internal/errors"
	"github.com/aetherdial/dial-engine/internal/model"

	"github.com/google/uuid"
)

// --- mocks ---

type mockCampaignRepo struct {
	mu        sync.Mutex
	nextID    int
	campaigns map[int]model.Campaign
}

func newMockCampaignRepo() *mockCampaignRepo {
	return &mockCampaignRepo{nextID: 1, campaigns: make(map[int]model.Campaign)}
}

func (m *mockCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	m.campaigns[c.ID] = *c
	return nil
}

func (m *mockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copied := c
	return &copied, nil
}

func (m *mockCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Campaign
	for id := 1; id < m.nextID; id++ {
		c, ok := m.campaigns[id]
		if !ok {
			continue
		}
		if status != "" && c.Status.String() != status {
			continue
		}
		copied := c
		out = append(out, &copied)
	}
	total := len(out)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

// Update mirrors the Postgres repository: the stats document is not part of
// a definition update.
func (m *mockCampaignRepo) Update(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.campaigns[c.ID]
	if !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	updated := *c
	updated.Stats = stored.Stats
	m.campaigns[c.ID] = updated
	return nil
}

func (m *mockCampaignRepo) UpdateStatus(campaignID int, status model.CampaignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.Status = status
	m.campaigns[campaignID] = c
	return nil
}

func (m *mockCampaignRepo) UpdateStats(campaignID int, stats model.CampaignStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return appErrors.NewCampaignNotFound(campaignID)
	}
	c.Stats = stats
	m.campaigns[campaignID] = c
	return nil
}

type mockLeadRepo struct {
	mu       sync.Mutex
	leads    []model.Lead
	groups   []model.LeadGroup
	statuses map[int]model.LeadStatus
	attempts map[int]time.Time
}

func newMockLeadRepo(leads []model.Lead, groups []model.LeadGroup) *mockLeadRepo {
	return &mockLeadRepo{
		leads:    leads,
		groups:   groups,
		statuses: make(map[int]model.LeadStatus),
		attempts: make(map[int]time.Time),
	}
}

func (m *mockLeadRepo) ListAll() ([]model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Lead, len(m.leads))
	copy(out, m.leads)
	return out, nil
}

func (m *mockLeadRepo) ListGroups() ([]model.LeadGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.LeadGroup, len(m.groups))
	copy(out, m.groups)
	return out, nil
}

func (m *mockLeadRepo) GetByID(id int) (*model.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.ID == id {
			copied := l
			return &copied, nil
		}
	}
	return nil, appErrors.NewLeadNotFound(id)
}

func (m *mockLeadRepo) Create(l *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = len(m.leads) + 1
	m.leads = append(m.leads, *l)
	return nil
}

func (m *mockLeadRepo) UpdateStatus(id int, status model.LeadStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = status
	return nil
}

func (m *mockLeadRepo) RecordAttempt(id int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[id] = at
	return nil
}

type mockAgentRepo struct {
	agents map[int]model.Agent
}

func newMockAgentRepo(agents ...model.Agent) *mockAgentRepo {
	m := &mockAgentRepo{agents: make(map[int]model.Agent)}
	for _, a := range agents {
		m.agents[a.ID] = a
	}
	return m
}

func (m *mockAgentRepo) GetByID(id int) (*model.Agent, error) {
	a, ok := m.agents[id]
	if !ok {
		return nil, appErrors.NewAgentNotFound(id)
	}
	copied := a
	return &copied, nil
}

func (m *mockAgentRepo) ListAll() ([]model.Agent, error) {
	out := make([]model.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAgentRepo) StatsFor(agentID int) (*model.AgentStats, error) {
	if _, ok := m.agents[agentID]; !ok {
		return nil, appErrors.NewAgentNotFound(agentID)
	}
	return &model.AgentStats{AgentID: agentID}, nil
}

// stubDialer either completes every call instantly with a connected outcome,
// or parks calls until the test completes them by hand.
type stubDialer struct {
	mu      sync.Mutex
	auto    bool
	pending map[int]chan dialer.CallResult
}

func newStubDialer(auto bool) *stubDialer {
	return &stubDialer{auto: auto, pending: make(map[int]chan dialer.CallResult)}
}

func (d *stubDialer) InitiateCall(_ context.Context, leadID, agentID int) (*dialer.CallHandle, error) {
	ch := make(chan dialer.CallResult, 1)
	if d.auto {
		ch <- dialer.CallResult{Outcome: model.CallOutcome{Connected: true, TalkTimeSeconds: 60}}
	} else {
		d.mu.Lock()
		d.pending[leadID] = ch
		d.mu.Unlock()
	}
	return &dialer.CallHandle{
		CallID:  uuid.New(),
		LeadID:  leadID,
		AgentID: agentID,
		Result:  ch,
	}, nil
}

// complete waits for the lead's call to be dispatched, then resolves it.
func (d *stubDialer) complete(leadID int, res dialer.CallResult) {
	deadline := time.Now().Add(2 * time.Second)
	for {
		d.mu.Lock()
		ch, ok := d.pending[leadID]
		if ok {
			delete(d.pending, leadID)
		}
		d.mu.Unlock()
		if ok {
			ch <- res
			return
		}
		if time.Now().After(deadline) {
			panic(fmt.Sprintf("no pending call for lead %d", leadID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// slowReadCampaignRepo widens the window between reading a campaign and
// persisting its next status, so unserialized callers would both observe the
// old status.
type slowReadCampaignRepo struct {
	*mockCampaignRepo
	delay time.Duration
}

func (r *slowReadCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	c, err := r.mockCampaignRepo.GetByID(id)
	time.Sleep(r.delay)
	return c, err
}

// countingDialer counts every call handed to the dialer.
type countingDialer struct {
	*stubDialer
	calls int32
}

func (d *countingDialer) InitiateCall(ctx context.Context, leadID, agentID int) (*dialer.CallHandle, error) {
	atomic.AddInt32(&d.calls, 1)
	return d.stubDialer.InitiateCall(ctx, leadID, agentID)
}

// --- fixtures ---

var testWindow = model.ScheduleWindow{
	StartMinute: 0,
	EndMinute:   24 * 60,
	Weekdays: []time.Weekday{
		time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	},
}

func validDraft() model.CampaignDraft {
	return model.CampaignDraft{
		Name:     "Q3 Outreach",
		AgentID:  1,
		Target:   model.CampaignTarget{GroupIDs: []int{1}},
		Pacing:   model.Pacing{MaxConcurrent: 2},
		Schedule: testWindow,
	}
}

func testLeads() ([]model.Lead, []model.LeadGroup) {
	leads := []model.Lead{
		{ID: 1, Name: "Ada", Phone: "+15550000001", Status: model.LeadStatusNew, GroupIDs: []int{1}},
		{ID: 2, Name: "Ben", Phone: "+15550000002", Status: model.LeadStatusNew, GroupIDs: []int{1}},
		{ID: 3, Name: "Cleo", Phone: "+15550000003", Status: model.LeadStatusDNC, GroupIDs: []int{1}},
		{ID: 4, Name: "Dev", Phone: "+15550000004", Status: model.LeadStatusNew, GroupIDs: []int{2}},
	}
	groups := []model.LeadGroup{{ID: 1, Name: "Warm"}, {ID: 2, Name: "Cold"}}
	return leads, groups
}

func newTestService(d dialer.Dialer) (*CampaignService, *mockCampaignRepo, *mockLeadRepo) {
	leads, groups := testLeads()
	campaignRepo := newMockCampaignRepo()
	leadRepo := newMockLeadRepo(leads, groups)
	agentRepo := newMockAgentRepo(
		model.Agent{ID: 1, Name: "Sales Agent", Platform: model.AgentPlatformVapi, IsActive: true},
		model.Agent{ID: 2, Name: "Retired Agent", Platform: model.AgentPlatformRetell, IsActive: false},
	)
	svc := NewCampaignService(campaignRepo, leadRepo, agentRepo, d, engine.SystemClock(), nil, cache.NewNoOpCache())
	return svc, campaignRepo, leadRepo
}

func waitForStatus(t *testing.T, repo *mockCampaignRepo, id int, want model.CampaignStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, err := repo.GetByID(id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if c.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	c, _ := repo.GetByID(id)
	t.Fatalf("campaign %d never reached status %q, stuck at %q", id, want, c.Status)
}

// --- tests ---

func TestCreateCampaignRejectsBadConfig(t *testing.T) {
	svc, _, _ := newTestService(newStubDialer(true))

	cases := []struct {
		name   string
		mutate func(*model.CampaignDraft)
	}{
		{"negative gap", func(d *model.CampaignDraft) { d.Pacing.GapMinutes = -1 }},
		{"zero concurrency", func(d *model.CampaignDraft) { d.Pacing.MaxConcurrent = 0 }},
		{"start after end", func(d *model.CampaignDraft) { d.Schedule.StartMinute = 600; d.Schedule.EndMinute = 540 }},
		{"end past midnight", func(d *model.CampaignDraft) { d.Schedule.EndMinute = 24*60 + 1 }},
		{"no weekdays", func(d *model.CampaignDraft) { d.Schedule.Weekdays = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.mutate(&draft)
			_, err := svc.CreateCampaign(draft)
			var invalid *appErrors.ErrInvalidConfig
			if !errors.As(err, &invalid) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestCreateCampaignRejectsInactiveAgent(t *testing.T) {
	svc, _, _ := newTestService(newStubDialer(true))

	draft := validDraft()
	draft.AgentID = 2
	_, err := svc.CreateCampaign(draft)
	var invalid *appErrors.ErrInvalidConfig
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidConfig for inactive agent, got %v", err)
	}

	draft.AgentID = 99
	_, err = svc.CreateCampaign(draft)
	var missing *appErrors.ErrAgentNotFound
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestCreateCampaignResolvesTotalLeads(t *testing.T) {
	svc, _, _ := newTestService(newStubDialer(true))

	// Group 1 holds leads 1, 2 and DNC lead 3; only two are callable.
	c, err := svc.CreateCampaign(validDraft())
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if c.Status != model.CampaignStatusDraft {
		t.Fatalf("expected draft status, got %q", c.Status)
	}
	if c.Stats.TotalLeads != 2 {
		t.Fatalf("expected 2 callable leads, got %d", c.Stats.TotalLeads)
	}
}

func TestStartCampaignRunsToCompletion(t *testing.T) {
	svc, campaignRepo, leadRepo := newTestService(newStubDialer(true))

	c, err := svc.CreateCampaign(validDraft())
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if _, err := svc.StartCampaign(c.ID); err != nil {
		t.Fatalf("StartCampaign: %v", err)
	}

	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusCompleted)

	final, _ := campaignRepo.GetByID(c.ID)
	if final.Stats.Attempted != 2 || final.Stats.Connected != 2 {
		t.Fatalf("unexpected final stats: %+v", final.Stats)
	}

	leadRepo.mu.Lock()
	attempts := len(leadRepo.attempts)
	leadRepo.mu.Unlock()
	if attempts != 2 {
		t.Fatalf("expected 2 attempt stamps, got %d", attempts)
	}
}

func TestStartCampaignIdempotentWhileActive(t *testing.T) {
	d := newStubDialer(false)
	svc, campaignRepo, _ := newTestService(d)

	c, err := svc.CreateCampaign(validDraft())
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if _, err := svc.StartCampaign(c.ID); err != nil {
		t.Fatalf("StartCampaign: %v", err)
	}
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusActive)

	// Starting again must not reset the run.
	again, err := svc.StartCampaign(c.ID)
	if err != nil {
		t.Fatalf("second StartCampaign: %v", err)
	}
	if again.Status != model.CampaignStatusActive {
		t.Fatalf("expected active, got %q", again.Status)
	}

	d.complete(1, dialer.CallResult{Outcome: model.CallOutcome{}})
	d.complete(2, dialer.CallResult{Outcome: model.CallOutcome{}})
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusCompleted)
}

func TestStartCampaignConcurrentStartsLaunchOneRun(t *testing.T) {
	leads, groups := testLeads()
	base := newMockCampaignRepo()
	campaignRepo := &slowReadCampaignRepo{mockCampaignRepo: base, delay: 25 * time.Millisecond}
	leadRepo := newMockLeadRepo(leads, groups)
	agentRepo := newMockAgentRepo(
		model.Agent{ID: 1, Name: "Sales Agent", Platform: model.AgentPlatformVapi, IsActive: true},
	)
	d := &countingDialer{stubDialer: newStubDialer(false)}
	svc := NewCampaignService(campaignRepo, leadRepo, agentRepo, d, engine.SystemClock(), nil, cache.NewNoOpCache())

	c, err := svc.CreateCampaign(validDraft())
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}

	// Both callers race through the read-transition-launch sequence; the
	// second must observe Active and no-op instead of launching a second run.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.StartCampaign(c.ID); err != nil {
				t.Errorf("StartCampaign: %v", err)
			}
		}()
	}
	wg.Wait()

	d.complete(1, dialer.CallResult{Outcome: model.CallOutcome{Connected: true, TalkTimeSeconds: 15}})
	d.complete(2, dialer.CallResult{Outcome: model.CallOutcome{}})
	waitForStatus(t, base, c.ID, model.CampaignStatusCompleted)
	// Give any duplicate run time to show itself before counting.
	time.Sleep(100 * time.Millisecond)

	if got := atomic.LoadInt32(&d.calls); got != 2 {
		t.Fatalf("audience of 2 was dialed %d times, concurrent starts must launch one run", got)
	}
	final, _ := base.GetByID(c.ID)
	if final.Stats.Attempted != 2 {
		t.Fatalf("expected 2 attempts, got %+v", final.Stats)
	}
}

func TestStartCompletedCampaignFails(t *testing.T) {
	svc, campaignRepo, _ := newTestService(newStubDialer(true))

	c, _ := svc.CreateCampaign(validDraft())
	if err := campaignRepo.UpdateStatus(c.ID, model.CampaignStatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	_, err := svc.StartCampaign(c.ID)
	var invalid *appErrors.ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStartCampaignEmptyAudienceAutoCompletes(t *testing.T) {
	svc, campaignRepo, _ := newTestService(newStubDialer(true))

	draft := validDraft()
	draft.Target = model.CampaignTarget{GroupIDs: []int{99}}
	c, err := svc.CreateCampaign(draft)
	if err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if _, err := svc.StartCampaign(c.ID); err != nil {
		t.Fatalf("StartCampaign: %v", err)
	}

	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusCompleted)
	final, _ := campaignRepo.GetByID(c.ID)
	if final.Stats.Attempted != 0 || final.Stats.TotalLeads != 0 {
		t.Fatalf("empty audience must attempt nothing: %+v", final.Stats)
	}
}

func TestPauseResumeFinishFlow(t *testing.T) {
	d := newStubDialer(false)
	svc, campaignRepo, _ := newTestService(d)

	c, _ := svc.CreateCampaign(validDraft())

	// Pausing a draft is illegal.
	err := svc.PauseCampaign(c.ID)
	var invalid *appErrors.ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTransition pausing a draft, got %v", err)
	}

	if _, err := svc.StartCampaign(c.ID); err != nil {
		t.Fatalf("StartCampaign: %v", err)
	}
	if err := svc.PauseCampaign(c.ID); err != nil {
		t.Fatalf("PauseCampaign: %v", err)
	}
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusPaused)

	if err := svc.ResumeCampaign(c.ID); err != nil {
		t.Fatalf("ResumeCampaign: %v", err)
	}
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusActive)

	if err := svc.FinishCampaign(c.ID); err != nil {
		t.Fatalf("FinishCampaign: %v", err)
	}
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusCompleted)

	// Finish on a completed campaign is rejected.
	err = svc.FinishCampaign(c.ID)
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTransition finishing twice, got %v", err)
	}

	// Unpark whatever was dispatched before the stop so the run drains.
	d.mu.Lock()
	parked := make([]int, 0, len(d.pending))
	for leadID := range d.pending {
		parked = append(parked, leadID)
	}
	d.mu.Unlock()
	for _, leadID := range parked {
		d.complete(leadID, dialer.CallResult{Outcome: model.CallOutcome{}})
	}
}

func TestUpdateCampaignRules(t *testing.T) {
	d := newStubDialer(false)
	svc, campaignRepo, leadRepo := newTestService(d)

	c, _ := svc.CreateCampaign(validDraft())

	// A non-active edit that widens the target recomputes total_leads.
	draft := validDraft()
	draft.Target = model.CampaignTarget{GroupIDs: []int{1, 2}}
	updated, err := svc.UpdateCampaign(c.ID, draft)
	if err != nil {
		t.Fatalf("UpdateCampaign: %v", err)
	}
	if updated.Stats.TotalLeads != 3 {
		t.Fatalf("expected 3 callable leads after widening, got %d", updated.Stats.TotalLeads)
	}

	if _, err := svc.StartCampaign(c.ID); err != nil {
		t.Fatalf("StartCampaign: %v", err)
	}
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusActive)

	// An active run keeps its frozen audience even if leads change.
	leadRepo.Create(&model.Lead{Name: "Eve", Phone: "+15550000005", Status: model.LeadStatusNew, GroupIDs: []int{1}})
	narrowed := validDraft()
	narrowed.Target = model.CampaignTarget{GroupIDs: []int{2}}
	updated, err = svc.UpdateCampaign(c.ID, narrowed)
	if err != nil {
		t.Fatalf("UpdateCampaign while active: %v", err)
	}
	if updated.Stats.TotalLeads != 3 {
		t.Fatalf("active edit must not touch total_leads, got %d", updated.Stats.TotalLeads)
	}

	for _, leadID := range []int{1, 2, 4} {
		d.complete(leadID, dialer.CallResult{Outcome: model.CallOutcome{Connected: true, TalkTimeSeconds: 30}})
	}
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusCompleted)

	// Completed campaigns cannot be edited.
	_, err = svc.UpdateCampaign(c.ID, validDraft())
	var invalid *appErrors.ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidTransition editing a completed campaign, got %v", err)
	}
}

func TestUpdateCampaignPreservesLiveStats(t *testing.T) {
	d := newStubDialer(false)
	svc, campaignRepo, _ := newTestService(d)

	c, _ := svc.CreateCampaign(validDraft())
	if _, err := svc.StartCampaign(c.ID); err != nil {
		t.Fatalf("StartCampaign: %v", err)
	}

	d.complete(1, dialer.CallResult{Outcome: model.CallOutcome{Connected: true, TalkTimeSeconds: 40}})

	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, _ := campaignRepo.GetByID(c.ID)
		if stored.Stats.Attempted == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("outcome never persisted: %+v", stored.Stats)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A definition edit mid-run must not roll back counters the outcome
	// handler already persisted.
	draft := validDraft()
	draft.Name = "Renamed Outreach"
	if _, err := svc.UpdateCampaign(c.ID, draft); err != nil {
		t.Fatalf("UpdateCampaign: %v", err)
	}

	stored, _ := campaignRepo.GetByID(c.ID)
	if stored.Stats.Attempted != 1 || stored.Stats.Connected != 1 {
		t.Fatalf("definition update clobbered live stats: %+v", stored.Stats)
	}
	if stored.Name != "Renamed Outreach" {
		t.Fatalf("definition update not persisted: %q", stored.Name)
	}

	d.complete(2, dialer.CallResult{Outcome: model.CallOutcome{}})
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusCompleted)
}

func TestGetCampaignSnapshot(t *testing.T) {
	d := newStubDialer(false)
	svc, campaignRepo, _ := newTestService(d)
	ctx := context.Background()

	c, _ := svc.CreateCampaign(validDraft())

	snap, err := svc.GetCampaignSnapshot(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCampaignSnapshot: %v", err)
	}
	if snap.Status != model.CampaignStatusDraft || snap.AudienceSize != 2 || snap.Remaining != 0 {
		t.Fatalf("unexpected draft snapshot: %+v", snap)
	}

	if _, err := svc.StartCampaign(c.ID); err != nil {
		t.Fatalf("StartCampaign: %v", err)
	}
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusActive)

	d.complete(1, dialer.CallResult{Outcome: model.CallOutcome{Connected: true, TalkTimeSeconds: 120}})

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err = svc.GetCampaignSnapshot(ctx, c.ID)
		if err != nil {
			t.Fatalf("GetCampaignSnapshot: %v", err)
		}
		if snap.Stats.Attempted == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("live snapshot never reflected the outcome: %+v", snap)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.Stats.Connected != 1 || snap.Stats.AvgTalkTime != 120 {
		t.Fatalf("unexpected live stats: %+v", snap.Stats)
	}

	d.complete(2, dialer.CallResult{Outcome: model.CallOutcome{}})
	waitForStatus(t, campaignRepo, c.ID, model.CampaignStatusCompleted)

	if _, err := svc.GetCampaignSnapshot(ctx, 999); err == nil {
		t.Fatal("expected an error for an unknown campaign")
	}
}

func TestListCampaignsPagination(t *testing.T) {
	svc, _, _ := newTestService(newStubDialer(true))

	for i := 0; i < 5; i++ {
		if _, err := svc.CreateCampaign(validDraft()); err != nil {
			t.Fatalf("CreateCampaign: %v", err)
		}
	}

	campaigns, pagination, err := svc.ListCampaigns(1, 2, "")
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(campaigns) != 2 {
		t.Fatalf("expected 2 campaigns on page 1, got %d", len(campaigns))
	}
	if pagination["total_count"] != 5 || pagination["total_pages"] != 3 {
		t.Fatalf("unexpected pagination: %v", pagination)
	}

	campaigns, _, err = svc.ListCampaigns(3, 2, "")
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(campaigns) != 1 {
		t.Fatalf("expected 1 campaign on the last page, got %d", len(campaigns))
	}

	campaigns, _, err = svc.ListCampaigns(1, 10, model.CampaignStatusActive.String())
	if err != nil {
		t.Fatalf("ListCampaigns: %v", err)
	}
	if len(campaigns) != 0 {
		t.Fatalf("expected no active campaigns, got %d", len(campaigns))
	}
}
