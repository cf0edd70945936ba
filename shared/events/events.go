// Package events carries domain events from the hostel core to the worker
// over Kafka.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event
type Type string

const (
	HostelCreated     Type = "hostel.created"
	HostelUpdated     Type = "hostel.updated"
	HostelDeactivated Type = "hostel.deactivated"

	RoomCreated Type = "room.created"
	RoomUpdated Type = "room.updated"
	RoomDeleted Type = "room.deleted"
	BedAssigned Type = "bed.assigned"
	BedReleased Type = "bed.released"

	TenantRegistered Type = "tenant.registered"
	TenantUpdated    Type = "tenant.updated"
	TenantCheckedIn  Type = "tenant.checked_in"
	TenantCheckedOut Type = "tenant.checked_out"
	TenantDeleted    Type = "tenant.deleted"

	PaymentRecorded  Type = "payment.recorded"
	PaymentCompleted Type = "payment.completed"
	PaymentCancelled Type = "payment.cancelled"
)

// AffectsCounts reports whether an event of this type can change a hostel's
// room, bed or tenant counters.
func (t Type) AffectsCounts() bool {
	switch t {
	case RoomCreated, RoomUpdated, RoomDeleted, BedAssigned, BedReleased,
		TenantRegistered, TenantCheckedIn, TenantCheckedOut, TenantDeleted:
		return true
	}
	return false
}

// Event is a domain event published after a successful mutation
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	HostelID   string                 `json:"hostel_id"`
	EntityID   string                 `json:"entity_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// New builds an event with a fresh id
func New(t Type, hostelID, entityID string, at time.Time, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       t,
		HostelID:   hostelID,
		EntityID:   entityID,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}

// Publisher delivers domain events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish implements Publisher
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the types of everything published so far, in order
func (r *Recorder) Types() []Type {
	var out []Type
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
