package engine

import (
	appErrors "github.com/aetherdial/dial-engine/internal/errors"
	"github.com/aetherdial/dial-engine/internal/model"
)

// LifecycleEvent is a requested campaign transition.
type LifecycleEvent string

const (
	EventStart  LifecycleEvent = "start"
	EventPause  LifecycleEvent = "pause"
	EventResume LifecycleEvent = "resume"
	EventFinish LifecycleEvent = "finish"
)

type transitionKey struct {
	from  model.CampaignStatus
	event LifecycleEvent
}

// transitions is the complete set of legal lifecycle moves. Completed is
// terminal: it has no outgoing entries.
var transitions = map[transitionKey]model.CampaignStatus{
	{model.CampaignStatusDraft, EventStart}:   model.CampaignStatusActive,
	{model.CampaignStatusActive, EventPause}:  model.CampaignStatusPaused,
	{model.CampaignStatusPaused, EventResume}: model.CampaignStatusActive,
	{model.CampaignStatusActive, EventFinish}: model.CampaignStatusCompleted,
	{model.CampaignStatusPaused, EventFinish}: model.CampaignStatusCompleted,
}

// Transition returns the status that results from applying event to from.
// Illegal moves return ErrInvalidTransition and the caller must leave the
// campaign unchanged.
func Transition(from model.CampaignStatus, event LifecycleEvent) (model.CampaignStatus, error) {
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, appErrors.NewInvalidTransition(from.String(), string(event))
	}
	return to, nil
}

// CanTransition reports whether event is legal from the given status.
func CanTransition(from model.CampaignStatus, event LifecycleEvent) bool {
	_, ok := transitions[transitionKey{from, event}]
	return ok
}
