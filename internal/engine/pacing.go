package engine

import (
	"context"
	"sync"
	"time"

	"github.com/aetherdial/dial-engine/internal/model"
)

// PacingPolicy admits dispatches for a single campaign under two independent
// constraints: at most MaxConcurrent calls in flight, and at least Gap
// between consecutive admissions. Each campaign owns its own policy; budgets
// are never shared across campaigns.
type PacingPolicy struct {
	clock Clock

	mu          sync.Mutex
	gap         time.Duration
	max         int
	inFlight    int
	nextAllowed time.Time

	slotFreed chan struct{}
}

func NewPacingPolicy(p model.Pacing, clock Clock) *PacingPolicy {
	return &PacingPolicy{
		clock:     clock,
		gap:       p.Gap(),
		max:       p.MaxConcurrent,
		slotFreed: make(chan struct{}, 1),
	}
}

// SetPacing applies a new gap and concurrency bound. It affects subsequent
// admissions only; calls already in flight keep their permits.
func (p *PacingPolicy) SetPacing(pacing model.Pacing) {
	p.mu.Lock()
	p.gap = pacing.Gap()
	p.max = pacing.MaxConcurrent
	p.mu.Unlock()

	// A raised bound may unblock a waiter.
	select {
	case p.slotFreed <- struct{}{}:
	default:
	}
}

// InFlight returns the number of permits currently held.
func (p *PacingPolicy) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Admit blocks until both a concurrency permit and the inter-dispatch gap are
// granted, then returns a release function that must be called exactly once
// when the call's outcome is observed. The permit is acquired before the gap
// wait so admission times are spaced at least one gap apart. On cancellation
// no permit is leaked.
func (p *PacingPolicy) Admit(ctx context.Context) (release func(), err error) {
	if err := p.acquirePermit(ctx); err != nil {
		return nil, err
	}

	if err := p.waitGap(ctx); err != nil {
		p.releasePermit()
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(p.releasePermit)
	}, nil
}

func (p *PacingPolicy) acquirePermit(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.inFlight < p.max {
			p.inFlight++
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.slotFreed:
		}
	}
}

func (p *PacingPolicy) releasePermit() {
	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()

	select {
	case p.slotFreed <- struct{}{}:
	default:
	}
}

// waitGap blocks until nextAllowed is reached, then advances it by the
// current gap. nextAllowed only ever moves forward.
func (p *PacingPolicy) waitGap(ctx context.Context) error {
	for {
		p.mu.Lock()
		now := p.clock.Now()
		if !now.Before(p.nextAllowed) {
			base := now
			if p.nextAllowed.After(base) {
				base = p.nextAllowed
			}
			p.nextAllowed = base.Add(p.gap)
			p.mu.Unlock()
			return nil
		}
		wait := p.nextAllowed.Sub(now)
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.clock.After(wait):
		}
	}
}
