// Package events publishes travel and booking lifecycle events so other
// services (notifications, analytics) can react to them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a lifecycle event.
type Type string

const (
	TravelPublished   Type = "travel.published"
	TravelCanceled    Type = "travel.canceled"
	TravelCompleted   Type = "travel.completed"
	BookingRequested  Type = "booking.requested"
	BookingAccepted   Type = "booking.accepted"
	BookingRejected   Type = "booking.rejected"
	BookingUnenrolled Type = "booking.unenrolled"
	RatingSubmitted   Type = "rating.submitted"
)

// Event is one lifecycle change. UserID is the passenger for booking events
// and the rater for rating events; it is nil for travel events.
type Event struct {
	Type       Type       `json:"type"`
	TravelID   uuid.UUID  `json:"travel_id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	ActorID    uuid.UUID  `json:"actor_id"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
