package queue

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/aetherdial/dial-engine/internal/model"
)

// TopicCallEvents carries every dispatch-related event the engine emits.
const TopicCallEvents = "call_events"

// Call event types.
const (
	EventDispatched     = "dispatched"
	EventOutcome        = "outcome"
	EventLeadError      = "lead_error"
	EventCampaignStatus = "campaign_status"
)

// CallEvent is the envelope published for every scheduler-side happening:
// a lead handed to the dialer, an outcome, a lead marked errored, or a
// campaign status change.
type CallEvent struct {
	Type       string               `json:"type"`
	CampaignID int                  `json:"campaign_id"`
	LeadID     int                  `json:"lead_id,omitempty"`
	CallID     string               `json:"call_id,omitempty"`
	Outcome    *model.CallOutcome   `json:"outcome,omitempty"`
	Error      string               `json:"error,omitempty"`
	Status     model.CampaignStatus `json:"status,omitempty"`
	At         time.Time            `json:"at"`
}

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is an in-process queue with retry, used when no broker is
// configured (tests, local runs).
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("⚠️ Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("❌ Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}
