package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/events"
	"github.com/mobility-sharing/backend/internal/observability"
	"github.com/mobility-sharing/backend/internal/repo"
)

// BookingService implements the booking coordinator: the booking state
// machine and the wallet reservations that go with it.
//
// Every wallet change happens in the same transaction as the booking change,
// with the travel row and then the passenger row locked.
type BookingService struct {
	store  repo.Store
	events EventPublisher
	now    func() time.Time
}

// NewBookingService constructs a BookingService. pub may be nil.
func NewBookingService(store repo.Store, pub EventPublisher) *BookingService {
	return &BookingService{store: store, events: pub, now: time.Now}
}

// Book creates a pending booking of travelID for userID and reserves the
// travel price on the user's wallet.
// Returns domain.ErrNotFound if the travel does not exist,
// domain.ErrInvalidState if it is not ACTIVE, domain.ErrValidation if the
// user drives it, domain.ErrDuplicate if the user already holds a live
// booking on it and domain.ErrInsufficientFunds if the price exceeds the
// available balance.
func (s *BookingService) Book(ctx context.Context, travelID, userID uuid.UUID) (domain.UserTravel, error) {
	var result domain.UserTravel
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		t, err := tx.Travels().LockByID(ctx, travelID)
		if err != nil {
			return err
		}
		if t.Status != domain.TravelActive {
			return fmt.Errorf("%w: travel is %s", domain.ErrInvalidState, t.Status)
		}
		if t.DriverID == userID {
			return fmt.Errorf("%w: drivers cannot book their own travel", domain.ErrValidation)
		}

		existing, err := tx.Bookings().GetLatest(ctx, userID, travelID)
		switch {
		case err == nil && existing.Status.Active():
			return fmt.Errorf("%w: booking already %s", domain.ErrDuplicate, existing.Status)
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return err
		}

		u, err := tx.Users().LockByID(ctx, userID)
		if err != nil {
			return err
		}
		if t.Price > u.Available() {
			return fmt.Errorf("%w: price %d exceeds available balance %d", domain.ErrInsufficientFunds, t.Price, u.Available())
		}

		result, err = tx.Bookings().Create(ctx, domain.UserTravel{
			UserID:     userID,
			TravelID:   travelID,
			Status:     domain.BookingPending,
			HeldAmount: t.Price,
		})
		if err != nil {
			return err
		}
		_, err = tx.Users().ApplyWalletChange(ctx, userID, domain.WalletEffect("", domain.BookingPending, t.Price))
		return err
	})
	observability.BookingOps.WithLabelValues("book", observability.Outcome(err)).Inc()
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("service.BookingService.Book: %w", err)
	}
	publish(ctx, s.events, bookingEvent(events.BookingRequested, result, userID, s.now()))
	return result, nil
}

// BookGroup books every travel in travelIDs for userID, one at a time and in
// the given order, after checking that the available balance covers their
// combined price.
//
// Group booking is not atomic. The returned error is reserved for failures
// before anything was booked (empty or repeated ids, unknown travels,
// insufficient aggregate balance). A failure part-way through is reported in
// the result with the bookings made so far; when compensate is set those are
// unenrolled again, best effort.
func (s *BookingService) BookGroup(ctx context.Context, travelIDs []uuid.UUID, userID uuid.UUID, compensate bool) (domain.GroupBookingResult, error) {
	if len(travelIDs) == 0 {
		return domain.GroupBookingResult{}, fmt.Errorf("%w: at least one travel is required", domain.ErrValidation)
	}
	seen := make(map[uuid.UUID]struct{}, len(travelIDs))
	for _, id := range travelIDs {
		if _, dup := seen[id]; dup {
			return domain.GroupBookingResult{}, fmt.Errorf("%w: travel %s listed twice", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}

	travels, err := s.store.Travels().ListByIDs(ctx, travelIDs)
	if err != nil {
		return domain.GroupBookingResult{}, fmt.Errorf("service.BookingService.BookGroup: %w", err)
	}
	if len(travels) != len(travelIDs) {
		return domain.GroupBookingResult{}, fmt.Errorf("service.BookingService.BookGroup: %w: some travels do not exist", domain.ErrNotFound)
	}
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return domain.GroupBookingResult{}, fmt.Errorf("service.BookingService.BookGroup: %w", err)
	}
	group := domain.TravelGroup{Travels: travels}
	if total := group.TotalPrice(); total > u.Available() {
		observability.BookingOps.WithLabelValues("book_group", observability.Outcome(domain.ErrInsufficientFunds)).Inc()
		return domain.GroupBookingResult{}, fmt.Errorf("service.BookingService.BookGroup: %w: group total %d exceeds available balance %d",
			domain.ErrInsufficientFunds, total, u.Available())
	}

	var result domain.GroupBookingResult
	for _, id := range travelIDs {
		b, err := s.Book(ctx, id, userID)
		if err != nil {
			failed := id
			result.FailedTravelID = &failed
			result.Err = err
			break
		}
		result.Booked = append(result.Booked, b)
	}

	observability.BookingOps.WithLabelValues("book_group", observability.Outcome(result.Err)).Inc()
	if result.Err == nil {
		return result, nil
	}
	if len(result.Booked) > 0 {
		observability.GroupBookingsPartial.Inc()
	}
	if compensate {
		s.compensate(ctx, &result, userID)
	}
	return result, nil
}

// compensate unenrolls every booking in result.Booked, recording each outcome.
func (s *BookingService) compensate(ctx context.Context, result *domain.GroupBookingResult, userID uuid.UUID) {
	for _, b := range result.Booked {
		undone, err := s.Unenroll(ctx, b.TravelID, userID)
		if err != nil {
			if result.CompensationErrors == nil {
				result.CompensationErrors = make(map[uuid.UUID]error)
			}
			result.CompensationErrors[b.TravelID] = err
			continue
		}
		result.Compensated = append(result.Compensated, undone)
	}
}

// Accept confirms userID's pending booking on travelID and debits the held
// price. Only the driver may accept, and only while the travel is ACTIVE.
// Returns domain.ErrUnauthorized, domain.ErrNotFound if there is no booking,
// or domain.ErrInvalidState if the booking is not pending.
func (s *BookingService) Accept(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error) {
	result, err := s.transition(ctx, travelID, userID, domain.EventAccept, func(t domain.Travel) error {
		if err := requireDriver(t, requesterID); err != nil {
			return err
		}
		if t.Status != domain.TravelActive {
			return fmt.Errorf("%w: travel is %s", domain.ErrInvalidState, t.Status)
		}
		return nil
	})
	observability.BookingOps.WithLabelValues("accept", observability.Outcome(err)).Inc()
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("service.BookingService.Accept: %w", err)
	}
	publish(ctx, s.events, bookingEvent(events.BookingAccepted, result, requesterID, s.now()))
	return result, nil
}

// Reject cancels userID's pending booking on travelID and releases its hold.
// Only the driver may reject.
func (s *BookingService) Reject(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error) {
	result, err := s.transition(ctx, travelID, userID, domain.EventReject, func(t domain.Travel) error {
		return requireDriver(t, requesterID)
	})
	observability.BookingOps.WithLabelValues("reject", observability.Outcome(err)).Inc()
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("service.BookingService.Reject: %w", err)
	}
	publish(ctx, s.events, bookingEvent(events.BookingRejected, result, requesterID, s.now()))
	return result, nil
}

// Unenroll withdraws userID from travelID. A pending hold is released and a
// confirmed payment refunded.
// Returns domain.ErrInvalidState once the travel is COMPLETED.
func (s *BookingService) Unenroll(ctx context.Context, travelID, userID uuid.UUID) (domain.UserTravel, error) {
	result, err := s.transition(ctx, travelID, userID, domain.EventUnenroll, func(t domain.Travel) error {
		if t.Status == domain.TravelCompleted {
			return fmt.Errorf("%w: travel is already completed", domain.ErrInvalidState)
		}
		return nil
	})
	observability.BookingOps.WithLabelValues("unenroll", observability.Outcome(err)).Inc()
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("service.BookingService.Unenroll: %w", err)
	}
	publish(ctx, s.events, bookingEvent(events.BookingUnenrolled, result, userID, s.now()))
	return result, nil
}

// Cancel resolves who is canceling userID's booking on travelID: the driver
// rejects it, the passenger unenrolls, anyone else gets domain.ErrUnauthorized.
func (s *BookingService) Cancel(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error) {
	if requesterID == userID {
		return s.Unenroll(ctx, travelID, userID)
	}
	t, err := s.store.Travels().GetByID(ctx, travelID)
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("service.BookingService.Cancel: %w", err)
	}
	if t.DriverID != requesterID {
		return domain.UserTravel{}, fmt.Errorf("service.BookingService.Cancel: %w: not the driver or the passenger", domain.ErrUnauthorized)
	}
	return s.Reject(ctx, travelID, userID, requesterID)
}

// GetStatus returns the current booking for (userID, travelID).
// Returns domain.ErrNotFound if the user never booked the travel.
func (s *BookingService) GetStatus(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error) {
	result, err := s.store.Bookings().GetLatest(ctx, userID, travelID)
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("service.BookingService.GetStatus: %w", err)
	}
	return result, nil
}

// ListForTravel returns every booking of travelID in creation order.
// Returns domain.ErrNotFound if the travel does not exist.
func (s *BookingService) ListForTravel(ctx context.Context, travelID uuid.UUID) ([]domain.UserTravel, error) {
	if _, err := s.store.Travels().GetByID(ctx, travelID); err != nil {
		return nil, fmt.Errorf("service.BookingService.ListForTravel: %w", err)
	}
	bookings, err := s.store.Bookings().ListByTravel(ctx, travelID)
	if err != nil {
		return nil, fmt.Errorf("service.BookingService.ListForTravel: %w", err)
	}
	return nonNil(bookings), nil
}

// transition applies ev to the current booking of (userID, travelID) and the
// matching wallet effect, after check has approved the locked travel.
func (s *BookingService) transition(ctx context.Context, travelID, userID uuid.UUID, ev domain.BookingEvent, check func(domain.Travel) error) (domain.UserTravel, error) {
	var result domain.UserTravel
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		t, err := tx.Travels().LockByID(ctx, travelID)
		if err != nil {
			return err
		}
		if err := check(t); err != nil {
			return err
		}
		b, err := tx.Bookings().LockLatest(ctx, userID, travelID)
		if err != nil {
			return err
		}
		next, err := b.Status.Apply(ev)
		if err != nil {
			return err
		}

		if _, err := tx.Users().LockByID(ctx, userID); err != nil {
			return err
		}
		if _, err := tx.Users().ApplyWalletChange(ctx, userID, domain.WalletEffect(b.Status, next, b.HeldAmount)); err != nil {
			return err
		}
		result, err = tx.Bookings().UpdateStatus(ctx, b.ID, next)
		return err
	})
	return result, err
}

func requireDriver(t domain.Travel, requesterID uuid.UUID) error {
	if t.DriverID != requesterID {
		return fmt.Errorf("%w: only the driver may decide on bookings", domain.ErrUnauthorized)
	}
	return nil
}
