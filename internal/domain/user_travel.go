package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a UserTravel.
// The canonical spelling is lower case.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCanceled  BookingStatus = "canceled"
)

// ParseBookingStatus accepts any casing of a known status and returns the
// canonical value.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BookingPending, BookingConfirmed, BookingCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown booking status %q", ErrValidation, s)
}

// Active reports whether the booking still counts for the one-per-pair rule.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// BookingEvent is an action applied to a booking.
type BookingEvent string

const (
	EventAccept   BookingEvent = "accept"
	EventReject   BookingEvent = "reject"
	EventUnenroll BookingEvent = "unenroll"
)

// Apply returns the status reached by applying ev to s.
//
//	pending   --accept-->          confirmed
//	pending   --reject|unenroll--> canceled
//	confirmed --unenroll-->        canceled
func (s BookingStatus) Apply(ev BookingEvent) (BookingStatus, error) {
	switch {
	case s == BookingPending && ev == EventAccept:
		return BookingConfirmed, nil
	case s == BookingPending && (ev == EventReject || ev == EventUnenroll):
		return BookingCanceled, nil
	case s == BookingConfirmed && ev == EventUnenroll:
		return BookingCanceled, nil
	}
	return s, fmt.Errorf("%w: cannot %s a %s booking", ErrInvalidState, ev, s)
}

// UserTravel is a passenger's booking against a Travel.
// HeldAmount is the travel price captured at booking time; it is what gets
// reserved, debited, released or refunded on the passenger's wallet.
type UserTravel struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	TravelID   uuid.UUID
	Status     BookingStatus
	HeldAmount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WalletChange is the effect of one booking transition on the passenger's
// wallet. Both fields are deltas.
type WalletChange struct {
	Wallet   int64
	Reserved int64
}

// WalletEffect returns how moving a booking from → to changes the wallet
// under the reservation-hold model: booking reserves, confirming debits,
// canceling a pending booking releases and canceling a confirmed one refunds.
func WalletEffect(from, to BookingStatus, amount int64) WalletChange {
	switch {
	case from == "" && to == BookingPending:
		return WalletChange{Reserved: amount}
	case from == BookingPending && to == BookingConfirmed:
		return WalletChange{Wallet: -amount, Reserved: -amount}
	case from == BookingPending && to == BookingCanceled:
		return WalletChange{Reserved: -amount}
	case from == BookingConfirmed && to == BookingCanceled:
		return WalletChange{Wallet: amount}
	}
	return WalletChange{}
}

// GroupBookingResult reports the outcome of booking a group of travels one
// by one. Group booking is not atomic: when Err is set, Booked holds the
// bookings that were created before FailedTravelID failed.
type GroupBookingResult struct {
	Booked         []UserTravel
	FailedTravelID *uuid.UUID
	Err            error

	// Compensated lists bookings unenrolled after a failure when the caller
	// asked for compensation. CompensationErrors has one entry per booking
	// whose unenroll failed.
	Compensated        []UserTravel
	CompensationErrors map[uuid.UUID]error
}

// Complete reports whether every member was booked.
func (r GroupBookingResult) Complete() bool {
	return r.Err == nil
}
