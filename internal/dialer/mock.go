package dialer

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/aetherdial/dial-engine/internal/model"
)

// MockDialer simulates a voice-agent platform for local runs and seed demos:
// 90% of calls go through, the rest fail transiently.
type MockDialer struct {
	// CallDuration is how long a simulated call stays in flight.
	CallDuration time.Duration
}

func (d *MockDialer) InitiateCall(ctx context.Context, leadID, agentID int) (*CallHandle, error) {
	result := make(chan CallResult, 1)
	handle := &CallHandle{
		CallID:  uuid.New(),
		LeadID:  leadID,
		AgentID: agentID,
		Result:  result,
	}

	duration := d.CallDuration
	if duration == 0 {
		duration = 50 * time.Millisecond
	}

	go func() {
		time.Sleep(duration)

		if rand.Float64() >= 0.9 {
			result <- CallResult{Err: NewTransient(fmt.Errorf("mock provider unavailable"))}
			return
		}

		connected := rand.Float64() < 0.6
		outcome := model.CallOutcome{Connected: connected}
		if connected {
			outcome.TalkTimeSeconds = 30 + rand.Float64()*120
			outcome.Booked = rand.Float64() < 0.25
		}
		result <- CallResult{Outcome: outcome}
	}()

	return handle, nil
}
