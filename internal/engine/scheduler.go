package engine

import (
	"context"
	"log"
	"sync"

	"github.com/aetherdial/dial-engine/internal/dialer"
	"github.com/aetherdial/dial-engine/internal/model"
)

// DefaultMaxRetries bounds re-dials after transient dialer failures before a
// lead is marked errored and skipped.
const DefaultMaxRetries = 3

// SchedulerConfig freezes everything a campaign run needs up front. Audience
// must already be resolved and sorted; the scheduler never re-resolves it.
type SchedulerConfig struct {
	CampaignID int
	AgentID    int
	Audience   []int
	Pacing     model.Pacing
	Schedule   model.ScheduleWindow
	MaxRetries int
}

// SchedulerHooks are invoked by the scheduler as the run progresses. All
// hooks are optional. OnOutcome and OnLeadError fire from outcome goroutines
// and may run concurrently; OnComplete fires once, after the cursor is
// exhausted and every in-flight call has finished.
type SchedulerHooks struct {
	OnDispatch  func(campaignID, leadID int, callID string)
	OnOutcome   func(campaignID, leadID int, callID string, outcome model.CallOutcome)
	OnLeadError func(campaignID, leadID int, callID string, err error)
	OnComplete  func(campaignID int)
}

// Scheduler drives one campaign's run: it walks the frozen audience in order,
// holds dispatches while the schedule window is closed, admits them through
// the pacing policy, hands leads to the dialer, and folds outcomes into the
// stats aggregator. Pausing stops new dispatches within one iteration and
// never cancels calls already handed to the dialer.
type Scheduler struct {
	cfg    SchedulerConfig
	dialer dialer.Dialer
	clock  Clock
	stats  *StatsAggregator
	policy *PacingPolicy
	hooks  SchedulerHooks

	mu       sync.Mutex
	queue    []int
	retries  map[int]int
	schedule model.ScheduleWindow
	paused   bool
	stopped  bool
	inFlight int
	waitCtx  context.Context
	waitStop context.CancelFunc

	wake    chan struct{}
	resumed chan struct{}
	done    chan struct{}

	windowWarn sync.Once
}

func NewScheduler(cfg SchedulerConfig, d dialer.Dialer, clock Clock, stats *StatsAggregator, hooks SchedulerHooks) *Scheduler {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	queue := make([]int, len(cfg.Audience))
	copy(queue, cfg.Audience)

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:      cfg,
		dialer:   d,
		clock:    clock,
		stats:    stats,
		policy:   NewPacingPolicy(cfg.Pacing, clock),
		hooks:    hooks,
		queue:    queue,
		retries:  make(map[int]int),
		schedule: cfg.Schedule,
		waitCtx:  ctx,
		waitStop: cancel,
		wake:     make(chan struct{}, 1),
		resumed:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the dispatch loop.
func (s *Scheduler) Start() {
	go s.run()
}

// Pause stops the loop from admitting new leads. A lead mid-admission is put
// back at the front of the cursor so resume picks up exactly where the run
// left off. In-flight calls continue and still report outcomes.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if s.paused || s.stopped {
		s.mu.Unlock()
		return
	}
	s.paused = true
	s.resumed = make(chan struct{})
	cancel := s.waitStop
	s.mu.Unlock()

	// Interrupt any gate or pacing wait in progress.
	cancel()
}

// Resume lets the loop continue against the same frozen audience and cursor.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if !s.paused || s.stopped {
		s.mu.Unlock()
		return
	}
	s.paused = false
	s.waitCtx, s.waitStop = context.WithCancel(context.Background())
	close(s.resumed)
	s.mu.Unlock()
}

// Stop ends the run: no further dispatches are issued, in-flight calls are
// left to complete. OnComplete is not invoked for a stopped run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.waitStop
	resumed := s.resumed
	paused := s.paused
	s.mu.Unlock()

	cancel()
	if paused {
		close(resumed)
	}
	s.wakeup()
}

// Done is closed once the loop has exited and every in-flight call has
// completed.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Remaining returns how many leads are still queued for dispatch.
func (s *Scheduler) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// SetPacing applies new pacing to subsequent dispatches.
func (s *Scheduler) SetPacing(p model.Pacing) { s.policy.SetPacing(p) }

// SetSchedule applies a new dispatch window to subsequent dispatches.
func (s *Scheduler) SetSchedule(w model.ScheduleWindow) {
	s.mu.Lock()
	s.schedule = w
	s.mu.Unlock()
}

func (s *Scheduler) run() {
	completed := s.loop()

	s.mu.Lock()
	for s.inFlight > 0 {
		s.mu.Unlock()
		<-s.wake
		s.mu.Lock()
	}
	s.mu.Unlock()

	if completed && s.hooks.OnComplete != nil {
		s.hooks.OnComplete(s.cfg.CampaignID)
	}
	close(s.done)
}

// loop walks the cursor until the audience is exhausted or the run is
// stopped. It returns true when the run drained naturally.
func (s *Scheduler) loop() bool {
	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return false
		}
		if s.paused {
			resumed := s.resumed
			s.mu.Unlock()
			<-resumed
			continue
		}
		if len(s.queue) == 0 {
			if s.inFlight == 0 {
				s.mu.Unlock()
				return true
			}
			// An in-flight transient failure may still re-queue its lead.
			s.mu.Unlock()
			<-s.wake
			continue
		}
		leadID := s.queue[0]
		s.queue = s.queue[1:]
		ctx := s.waitCtx
		window := s.schedule
		s.mu.Unlock()

		if err := s.waitForWindow(ctx, window); err != nil {
			s.requeueFront(leadID)
			continue
		}

		release, err := s.policy.Admit(ctx)
		if err != nil {
			s.requeueFront(leadID)
			continue
		}

		s.dispatch(leadID, release)
	}
}

// waitForWindow blocks until the schedule gate is open, sleeping until
// NextOpen between checks.
func (s *Scheduler) waitForWindow(ctx context.Context, window model.ScheduleWindow) error {
	for {
		now := s.clock.Now()
		if IsOpen(now, window) {
			return nil
		}
		next := NextOpen(now, window)
		if next.IsZero() {
			// No dial days configured; validation should prevent this.
			s.windowWarn.Do(func() {
				log.Printf("⚠️ campaign %d: schedule window has no dial days, holding dispatch", s.cfg.CampaignID)
			})
			next = now.AddDate(0, 0, 1)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(next.Sub(now)):
		}

		s.mu.Lock()
		window = s.schedule
		s.mu.Unlock()
	}
}

func (s *Scheduler) dispatch(leadID int, release func()) {
	handle, err := s.dialer.InitiateCall(context.Background(), leadID, s.cfg.AgentID)
	if err != nil {
		release()
		s.handleDialError(leadID, "", err)
		return
	}

	if s.hooks.OnDispatch != nil {
		s.hooks.OnDispatch(s.cfg.CampaignID, leadID, handle.CallID.String())
	}

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	go s.awaitResult(leadID, handle, release)
}

// awaitResult waits for the dialer's asynchronous outcome. The permit is
// released exactly once, whatever the result path.
func (s *Scheduler) awaitResult(leadID int, handle *dialer.CallHandle, release func()) {
	res := <-handle.Result
	release()

	if res.Err != nil {
		s.handleDialError(leadID, handle.CallID.String(), res.Err)
	} else if err := s.stats.RecordOutcome(s.cfg.CampaignID, res.Outcome); err != nil {
		log.Printf("⚠️ campaign %d lead %d: %v", s.cfg.CampaignID, leadID, err)
	} else if s.hooks.OnOutcome != nil {
		s.hooks.OnOutcome(s.cfg.CampaignID, leadID, handle.CallID.String(), res.Outcome)
	}

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	s.wakeup()
}

// handleDialError implements the failure semantics: transient errors re-queue
// the lead at the back of the cursor up to MaxRetries, then the lead is
// marked errored and skipped; permanent errors skip immediately. Stats are
// never advanced for a dial error.
func (s *Scheduler) handleDialError(leadID int, callID string, err error) {
	if dialer.IsTransient(err) {
		s.mu.Lock()
		s.retries[leadID]++
		attempts := s.retries[leadID]
		if attempts < s.cfg.MaxRetries && !s.stopped {
			s.queue = append(s.queue, leadID)
			s.mu.Unlock()
			log.Printf("⚠️ campaign %d lead %d transient dial failure (attempt %d/%d), re-queued: %v",
				s.cfg.CampaignID, leadID, attempts, s.cfg.MaxRetries, err)
			s.wakeup()
			return
		}
		s.mu.Unlock()
	}

	log.Printf("❌ campaign %d lead %d marked errored: %v", s.cfg.CampaignID, leadID, err)
	if s.hooks.OnLeadError != nil {
		s.hooks.OnLeadError(s.cfg.CampaignID, leadID, callID, err)
	}
	s.wakeup()
}

func (s *Scheduler) requeueFront(leadID int) {
	s.mu.Lock()
	s.queue = append([]int{leadID}, s.queue...)
	s.mu.Unlock()
}

func (s *Scheduler) wakeup() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
