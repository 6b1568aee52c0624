package dialer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aetherdial/dial-engine/internal/model"
)

// Dialer is the external abstraction that actually places calls. The engine
// decides whether, when, and to whom to dispatch; the dialer does the rest
// and reports the outcome asynchronously through the handle.
type Dialer interface {
	InitiateCall(ctx context.Context, leadID, agentID int) (*CallHandle, error)
}

// CallHandle identifies one in-flight call. Exactly one CallResult arrives on
// Result when the call finishes.
type CallHandle struct {
	CallID  uuid.UUID
	LeadID  int
	AgentID int
	Result  <-chan CallResult
}

// CallResult is either an outcome or a dial error, never both.
type CallResult struct {
	Outcome model.CallOutcome
	Err     error
}

// DialError classifies a transport/provider failure. Transient failures are
// retryable; permanent ones are not. A "no answer" is not an error, it is a
// normal outcome with Connected=false.
type DialError struct {
	Transient bool
	Err       error
}

func (e *DialError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("dial failed (%s): %v", kind, e.Err)
}

func (e *DialError) Unwrap() error { return e.Err }

func NewTransient(err error) error { return &DialError{Transient: true, Err: err} }
func NewPermanent(err error) error { return &DialError{Transient: false, Err: err} }

// IsTransient reports whether err is a retryable dial failure.
func IsTransient(err error) bool {
	var de *DialError
	return errors.As(err, &de) && de.Transient
}
