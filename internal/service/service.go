// Package service contains the business logic for the Mobility Sharing API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here. Services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/events"
	"github.com/mobility-sharing/backend/internal/observability"
)

// Geocoder resolves a free-form address to coordinates.
// A nil result with a nil error means the address has no match.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*domain.Coordinates, error)
}

// EventPublisher delivers lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, evs ...events.Event) error
}

// publish sends evs after the state change they describe has committed.
// Delivery failures are logged and counted but never fail the operation.
func publish(ctx context.Context, pub EventPublisher, evs ...events.Event) {
	if pub == nil || len(evs) == 0 {
		return
	}
	if err := pub.Publish(ctx, evs...); err != nil {
		observability.EventPublishFailures.Add(float64(len(evs)))
		slog.WarnContext(ctx, "publish events failed",
			"type", string(evs[0].Type),
			"count", len(evs),
			"error", err,
		)
	}
}

func travelEvent(typ events.Type, t domain.Travel, actor uuid.UUID, at time.Time) events.Event {
	return events.Event{Type: typ, TravelID: t.ID, ActorID: actor, OccurredAt: at}
}

func bookingEvent(typ events.Type, b domain.UserTravel, actor uuid.UUID, at time.Time) events.Event {
	userID := b.UserID
	return events.Event{Type: typ, TravelID: b.TravelID, UserID: &userID, ActorID: actor, OccurredAt: at}
}

// today returns the current calendar day in loc as midnight UTC, the form
// every Travel.Date is stored in.
func today(now func() time.Time, loc *time.Location) time.Time {
	return domain.DateOf(now().In(loc))
}
