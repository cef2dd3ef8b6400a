// Package queue defines message payloads exchanged over the message broker
// and the consumer that archives them.
package queue

import "time"

// EventsQueue is the durable queue storefront events are published to.
const EventsQueue = "storefront.events"

// Event types.
const (
    EventLogin          = "session.login"
    EventLogout         = "session.logout"
    EventSessionEnded   = "session.ended" // revalidation failure or API 401
    EventRegistered     = "user.registered"
    EventProfileUpdated = "user.profile_updated"
    EventOrderPlaced    = "order.placed"
    EventTopUpRequested = "topup.requested"
    EventAdminAction    = "admin.action"
    EventUserEdited     = "admin.user_edited"
)

// Event is one audit record.  It carries enough for a consumer to log or
// alert without calling the API back.
type Event struct {
    Type       string            `json:"type"`
    ActorID    string            `json:"actor_id,omitempty"`
    ActorEmail string            `json:"actor_email,omitempty"`
    Subject    string            `json:"subject,omitempty"` // resource id the event is about
    Amount     int64             `json:"amount,omitempty"`
    Detail     map[string]string `json:"detail,omitempty"`
    RequestID  string            `json:"request_id,omitempty"`
    OccurredAt string            `json:"occurred_at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(typ, actorID, actorEmail string) Event {
    return Event{
        Type:       typ,
        ActorID:    actorID,
        ActorEmail: actorEmail,
        OccurredAt: time.Now().UTC().Format(time.RFC3339),
    }
}
