package service

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/events"
	"github.com/mobility-sharing/backend/internal/observability"
	"github.com/mobility-sharing/backend/internal/repo"
)

// TravelInput is what a driver submits to publish one travel.
// Coordinates are optional; when both are nil the service geocodes the
// addresses if a Geocoder is configured.
type TravelInput struct {
	Origin            string
	Destination       string
	Date              time.Time
	Time              domain.TimeOfDay
	Price             int64
	OriginCoords      *domain.Coordinates
	DestinationCoords *domain.Coordinates
}

// RecurringInput publishes one leg per day in [StartDate, EndDate].
type RecurringInput struct {
	Origin            string
	Destination       string
	StartDate         time.Time
	EndDate           time.Time
	Time              domain.TimeOfDay
	Price             int64
	OriginCoords      *domain.Coordinates
	DestinationCoords *domain.Coordinates
}

// TravelOptions configures a TravelService. Zero values are usable:
// no geocoding, no events, UTC, 366 legs per series, time.Now.
type TravelOptions struct {
	Geocoder         Geocoder
	Events           EventPublisher
	Location         *time.Location
	MaxRecurringDays int
	Now              func() time.Time
}

// TravelService implements the travel registry: publishing, lifecycle
// transitions and lookups.
type TravelService struct {
	store            repo.Store
	geocoder         Geocoder
	events           EventPublisher
	loc              *time.Location
	maxRecurringDays int
	now              func() time.Time
}

// NewTravelService constructs a TravelService backed by the provided Store.
func NewTravelService(store repo.Store, opts TravelOptions) *TravelService {
	s := &TravelService{
		store:            store,
		geocoder:         opts.Geocoder,
		events:           opts.Events,
		loc:              opts.Location,
		maxRecurringDays: opts.MaxRecurringDays,
		now:              opts.Now,
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.maxRecurringDays <= 0 {
		s.maxRecurringDays = 366
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PublishSingle validates and persists one ACTIVE travel driven by driverID.
// Returns domain.ErrValidation if input violates business rules.
func (s *TravelService) PublishSingle(ctx context.Context, driverID uuid.UUID, in TravelInput) (domain.Travel, error) {
	t := domain.Travel{
		DriverID:          driverID,
		Origin:            strings.TrimSpace(in.Origin),
		Destination:       strings.TrimSpace(in.Destination),
		Date:              domain.DateOf(in.Date),
		Time:              in.Time,
		Price:             in.Price,
		Status:            domain.TravelActive,
		OriginCoords:      in.OriginCoords,
		DestinationCoords: in.DestinationCoords,
	}
	if in.Date.IsZero() {
		return domain.Travel{}, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	if err := validateTravel(t); err != nil {
		return domain.Travel{}, err
	}
	t.OriginCoords, t.DestinationCoords = s.resolveCoords(ctx, t.Origin, t.Destination, in.OriginCoords, in.DestinationCoords)

	result, err := s.store.Travels().Create(ctx, t)
	if err != nil {
		return domain.Travel{}, fmt.Errorf("service.TravelService.PublishSingle: %w", err)
	}
	observability.TravelsPublished.WithLabelValues("single").Inc()
	publish(ctx, s.events, travelEvent(events.TravelPublished, result, driverID, s.now()))
	return result, nil
}

// PublishRecurring creates one leg per calendar day in [StartDate, EndDate]
// inclusive, all sharing a fresh RecurrenceID. Either every leg is created or
// none is.
// Returns domain.ErrValidation for an inverted or oversized range.
func (s *TravelService) PublishRecurring(ctx context.Context, driverID uuid.UUID, in RecurringInput) ([]domain.Travel, error) {
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	days := domain.DaysInRange(in.StartDate, in.EndDate)
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: end_date must not be before start_date", domain.ErrValidation)
	}
	if len(days) > s.maxRecurringDays {
		return nil, fmt.Errorf("%w: a series may span at most %d days", domain.ErrValidation, s.maxRecurringDays)
	}

	recurrenceID := uuid.New()
	template := domain.Travel{
		DriverID:     driverID,
		Origin:       strings.TrimSpace(in.Origin),
		Destination:  strings.TrimSpace(in.Destination),
		Time:         in.Time,
		Price:        in.Price,
		Status:       domain.TravelActive,
		RecurrenceID: &recurrenceID,
	}
	if err := validateTravel(template); err != nil {
		return nil, err
	}
	template.OriginCoords, template.DestinationCoords = s.resolveCoords(ctx, template.Origin, template.Destination, in.OriginCoords, in.DestinationCoords)

	legs := make([]domain.Travel, 0, len(days))
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		for _, day := range days {
			leg := template
			leg.Date = day
			created, err := tx.Travels().Create(ctx, leg)
			if err != nil {
				return err
			}
			legs = append(legs, created)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service.TravelService.PublishRecurring: %w", err)
	}

	observability.TravelsPublished.WithLabelValues("recurring").Add(float64(len(legs)))
	at := s.now()
	evs := make([]events.Event, len(legs))
	for i, leg := range legs {
		evs[i] = travelEvent(events.TravelPublished, leg, driverID, at)
	}
	publish(ctx, s.events, evs...)
	return legs, nil
}

// Cancel moves an ACTIVE travel to CANCELED. Every live booking on it is
// canceled in the same transaction: pending holds are released and
// confirmed payments refunded.
// Returns domain.ErrUnauthorized if requesterID is not the driver and
// domain.ErrInvalidState if the travel is already terminal.
func (s *TravelService) Cancel(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error) {
	var (
		result   domain.Travel
		canceled []domain.UserTravel
	)
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		t, err := s.lockForTransition(ctx, tx, travelID, requesterID, domain.TravelCanceled)
		if err != nil {
			return err
		}

		bookings, err := tx.Bookings().ListByTravel(ctx, travelID)
		if err != nil {
			return err
		}
		bookings = slices.DeleteFunc(bookings, func(b domain.UserTravel) bool { return !b.Status.Active() })
		// Lock passengers in a fixed order so concurrent cancels cannot deadlock.
		slices.SortFunc(bookings, func(a, b domain.UserTravel) int {
			return strings.Compare(a.UserID.String(), b.UserID.String())
		})
		for _, b := range bookings {
			if _, err := tx.Users().LockByID(ctx, b.UserID); err != nil {
				return err
			}
			change := domain.WalletEffect(b.Status, domain.BookingCanceled, b.HeldAmount)
			if _, err := tx.Users().ApplyWalletChange(ctx, b.UserID, change); err != nil {
				return err
			}
			updated, err := tx.Bookings().UpdateStatus(ctx, b.ID, domain.BookingCanceled)
			if err != nil {
				return err
			}
			canceled = append(canceled, updated)
		}

		result, err = tx.Travels().UpdateStatus(ctx, t.ID, domain.TravelCanceled)
		return err
	})
	if err != nil {
		return domain.Travel{}, fmt.Errorf("service.TravelService.Cancel: %w", err)
	}

	observability.TravelTransitions.WithLabelValues(string(domain.TravelCanceled)).Inc()
	at := s.now()
	evs := []events.Event{travelEvent(events.TravelCanceled, result, requesterID, at)}
	for _, b := range canceled {
		evs = append(evs, bookingEvent(events.BookingRejected, b, requesterID, at))
	}
	publish(ctx, s.events, evs...)
	return result, nil
}

// Complete moves an ACTIVE travel to COMPLETED once its date has arrived in
// the configured time zone. The time of day is not considered.
// Returns domain.ErrUnauthorized if requesterID is not the driver and
// domain.ErrInvalidState if the travel is terminal or dated in the future.
func (s *TravelService) Complete(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error) {
	var result domain.Travel
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		t, err := s.lockForTransition(ctx, tx, travelID, requesterID, domain.TravelCompleted)
		if err != nil {
			return err
		}
		if day := today(s.now, s.loc); t.Date.After(day) {
			return fmt.Errorf("%w: travel on %s cannot be completed before that day (today is %s)",
				domain.ErrInvalidState, t.Date.Format(time.DateOnly), day.Format(time.DateOnly))
		}
		result, err = tx.Travels().UpdateStatus(ctx, t.ID, domain.TravelCompleted)
		return err
	})
	if err != nil {
		return domain.Travel{}, fmt.Errorf("service.TravelService.Complete: %w", err)
	}

	observability.TravelTransitions.WithLabelValues(string(domain.TravelCompleted)).Inc()
	publish(ctx, s.events, travelEvent(events.TravelCompleted, result, requesterID, s.now()))
	return result, nil
}

// lockForTransition loads the travel under a row lock and checks that
// requesterID drives it and that it may move to next.
func (s *TravelService) lockForTransition(ctx context.Context, tx repo.Store, travelID, requesterID uuid.UUID, next domain.TravelStatus) (domain.Travel, error) {
	t, err := tx.Travels().LockByID(ctx, travelID)
	if err != nil {
		return domain.Travel{}, err
	}
	if t.DriverID != requesterID {
		return domain.Travel{}, fmt.Errorf("%w: only the driver may change this travel", domain.ErrUnauthorized)
	}
	if _, err := t.Status.TransitionTo(next); err != nil {
		return domain.Travel{}, err
	}
	return t, nil
}

// FindByRoute streams travels whose origin contains origin and, when
// destination is non-empty, whose destination contains destination.
// Matching is case-insensitive. Every range over the result runs a fresh query.
// An empty origin yields a single domain.ErrValidation.
func (s *TravelService) FindByRoute(ctx context.Context, origin, destination string) iter.Seq2[domain.Travel, error] {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	if origin == "" {
		return func(yield func(domain.Travel, error) bool) {
			yield(domain.Travel{}, fmt.Errorf("%w: origin is required", domain.ErrValidation))
		}
	}
	seq := s.store.Travels().ListByRoute(ctx, origin, destination)
	return func(yield func(domain.Travel, error) bool) {
		for t, err := range seq {
			if err != nil {
				yield(domain.Travel{}, fmt.Errorf("service.TravelService.FindByRoute: %w", err))
				return
			}
			if !yield(t, nil) {
				return
			}
		}
	}
}

// GetByID returns a single travel by ID.
// Returns domain.ErrNotFound if no travel with that ID exists.
func (s *TravelService) GetByID(ctx context.Context, id uuid.UUID) (domain.Travel, error) {
	result, err := s.store.Travels().GetByID(ctx, id)
	if err != nil {
		return domain.Travel{}, fmt.Errorf("service.TravelService.GetByID: %w", err)
	}
	return result, nil
}

// ListByDriver returns every travel driverID drives, most recent first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TravelService) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Travel, error) {
	travels, err := s.store.Travels().ListByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("service.TravelService.ListByDriver: %w", err)
	}
	return nonNil(travels), nil
}

// ListEnrolledByUser returns travels on which userID holds a pending or
// confirmed booking.
func (s *TravelService) ListEnrolledByUser(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	travels, err := s.store.Travels().ListEnrolledByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.TravelService.ListEnrolledByUser: %w", err)
	}
	return nonNil(travels), nil
}

// resolveCoords returns the caller's coordinates when given, otherwise asks
// the geocoder. Coordinates are only returned when both addresses resolve;
// lookup failures are logged and leave the travel without coordinates.
func (s *TravelService) resolveCoords(ctx context.Context, origin, destination string, from, to *domain.Coordinates) (*domain.Coordinates, *domain.Coordinates) {
	if from != nil && to != nil {
		return from, to
	}
	if s.geocoder == nil {
		return nil, nil
	}
	from, err := s.geocoder.Geocode(ctx, origin)
	if err != nil {
		slog.WarnContext(ctx, "geocode origin failed", "address", origin, "error", err)
		return nil, nil
	}
	to, err = s.geocoder.Geocode(ctx, destination)
	if err != nil {
		slog.WarnContext(ctx, "geocode destination failed", "address", destination, "error", err)
		return nil, nil
	}
	if from == nil || to == nil {
		return nil, nil
	}
	return from, to
}

// validateTravel enforces the rules shared by single and recurring publishing.
//   - Origin and destination must be non-empty after trimming.
//   - Time must fall within one day.
//   - Price must not be negative.
//   - Coordinates, if given, come in pairs and are in range.
func validateTravel(t domain.Travel) error {
	if t.Origin == "" {
		return fmt.Errorf("%w: origin is required", domain.ErrValidation)
	}
	if t.Destination == "" {
		return fmt.Errorf("%w: destination is required", domain.ErrValidation)
	}
	if t.Time < 0 || time.Duration(t.Time) >= 24*time.Hour {
		return fmt.Errorf("%w: time must be within one day", domain.ErrValidation)
	}
	if t.Price < 0 || t.Price > domain.MaxPrice {
		return fmt.Errorf("%w: price must be between 0 and %d", domain.ErrValidation, domain.MaxPrice)
	}
	if (t.OriginCoords == nil) != (t.DestinationCoords == nil) {
		return fmt.Errorf("%w: origin and destination coordinates must be given together", domain.ErrValidation)
	}
	for _, c := range []*domain.Coordinates{t.OriginCoords, t.DestinationCoords} {
		if c != nil && (c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180) {
			return fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
