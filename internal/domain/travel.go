// Package domain contains the core data types for the Mobility Sharing backend.
// This package has no external dependencies beyond uuid and is imported by
// every other internal package (repo, service, handler).
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxPrice is the highest seat price a travel may be published with, in rupees.
const MaxPrice int64 = 1_000_000

// TravelStatus is the lifecycle state of a Travel.
// The canonical spelling is upper case.
type TravelStatus string

const (
	TravelActive    TravelStatus = "ACTIVE"
	TravelCompleted TravelStatus = "COMPLETED"
	TravelCanceled  TravelStatus = "CANCELED"
)

// ParseTravelStatus accepts any casing of a known status and returns the
// canonical value.
func ParseTravelStatus(s string) (TravelStatus, error) {
	switch st := TravelStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case TravelActive, TravelCompleted, TravelCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown travel status %q", ErrValidation, s)
}

// Terminal reports whether no further transition is possible.
func (s TravelStatus) Terminal() bool {
	return s == TravelCompleted || s == TravelCanceled
}

// TransitionTo returns next if the travel may move there from s.
// Only ACTIVE→COMPLETED and ACTIVE→CANCELED exist.
func (s TravelStatus) TransitionTo(next TravelStatus) (TravelStatus, error) {
	if s != TravelActive || !next.Terminal() {
		return s, fmt.Errorf("%w: travel cannot move from %s to %s", ErrInvalidState, s, next)
	}
	return next, nil
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Travel is a single ride offered by a driver on one calendar day.
// Legs published together as a recurring series share RecurrenceID.
type Travel struct {
	ID           uuid.UUID
	DriverID     uuid.UUID
	Origin       string
	Destination  string
	Date         time.Time // calendar day, midnight UTC
	Time         TimeOfDay
	Price        int64
	Status       TravelStatus
	RecurrenceID *uuid.UUID

	// Both set or both nil.
	OriginCoords      *Coordinates
	DestinationCoords *Coordinates

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recurring reports whether the travel belongs to a recurrence series.
func (t Travel) Recurring() bool {
	return t.RecurrenceID != nil
}

// DepartsBefore orders travels by date, then by time of day.
func (t Travel) DepartsBefore(o Travel) bool {
	if !t.Date.Equal(o.Date) {
		return t.Date.Before(o.Date)
	}
	return t.Time < o.Time
}

// TimeOfDay is a departure time expressed as the offset from midnight.
type TimeOfDay time.Duration

// ParseTimeOfDay parses "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
			return TimeOfDay(d), nil
		}
	}
	return 0, fmt.Errorf("%w: time must be HH:MM or HH:MM:SS, got %q", ErrValidation, s)
}

// String formats the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	d := time.Duration(t)
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// DateOf returns the calendar day of t (in t's location) as midnight UTC.
// All Travel dates are normalised this way so they compare with Equal.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInRange returns every calendar day in [start, end] inclusive.
// It returns nil when end is before start.
func DaysInRange(start, end time.Time) []time.Time {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return nil
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// TravelGroup is a set of search results that belong together: all legs of
// one recurrence series, or a single standalone travel.
// Travels are in departure order.
type TravelGroup struct {
	RecurrenceID *uuid.UUID
	Travels      []Travel
}

// TotalPrice is the sum of all member prices, used for the aggregate
// wallet check before booking the whole group. The sum saturates at
// math.MaxInt64 so it never wraps negative.
func (g TravelGroup) TotalPrice() int64 {
	var sum int64
	for _, t := range g.Travels {
		if t.Price > math.MaxInt64-sum {
			return math.MaxInt64
		}
		sum += t.Price
	}
	return sum
}

// TravelIDs returns the member ids in group order.
func (g TravelGroup) TravelIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(g.Travels))
	for i, t := range g.Travels {
		ids[i] = t.ID
	}
	return ids
}
