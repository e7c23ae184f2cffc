// Package events publishes landing-page visit events. Publishing is fail-open:
// a broken sink never changes what the visitor sees.
package events

import (
	"context"
	"time"
)

// EventType names what happened during a visit.
type EventType string

const (
	EventIdentityMinted  EventType = "identity_minted"
	EventIdentityExpired EventType = "identity_expired"
	EventCheckFailed     EventType = "check_failed"
	EventStateResolved   EventType = "state_resolved"
)

// Event is one visit fact. VisitorID is the unauthenticated browser id.
type Event struct {
	Type      EventType `json:"type"`
	VisitorID string    `json:"visitor_id"`
	State     string    `json:"state,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher accepts events without blocking the caller on delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
