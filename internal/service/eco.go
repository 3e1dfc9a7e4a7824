package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/repo"
)

// ecoWindowDays is the length of the eco window, ending today inclusive.
const ecoWindowDays = 7

// EcoParams are the constants of the eco projection.
type EcoParams struct {
	// CO2PerSeatKg is the CO₂ saved for every seat shared on a completed trip.
	CO2PerSeatKg float64
	// RupeesPerPassenger is earned per confirmed passenger carried as driver.
	RupeesPerPassenger int64
	// RupeesPerRide is earned per confirmed ride taken as passenger.
	RupeesPerRide int64
}

// EcoService computes the weekly sustainability summary.
type EcoService struct {
	eco    repo.EcoRepo
	params EcoParams
	loc    *time.Location
	now    func() time.Time
}

// NewEcoService constructs an EcoService. A nil loc means UTC.
func NewEcoService(eco repo.EcoRepo, params EcoParams, loc *time.Location) *EcoService {
	if loc == nil {
		loc = time.UTC
	}
	return &EcoService{eco: eco, params: params, loc: loc, now: time.Now}
}

// WeeklyStats returns userID's eco summary for the seven days ending today.
func (s *EcoService) WeeklyStats(ctx context.Context, userID uuid.UUID) (domain.WeeklyEcoStats, error) {
	history, err := s.eco.History(ctx, userID)
	if err != nil {
		return domain.WeeklyEcoStats{}, fmt.Errorf("service.EcoService.WeeklyStats: %w", err)
	}
	return AggregateWeeklyStats(history, today(s.now, s.loc), s.params), nil
}

// AggregateWeeklyStats projects history onto the window [today-6, today],
// by travel date:
//   - the average confirmed passengers per COMPLETED trip driven,
//   - the confirmed rides taken on non-canceled travels,
//   - the rupees earned for passengers carried and rides taken,
//   - the CO₂ saved by seats shared on completed trips, for the window and
//     for the whole history.
func AggregateWeeklyStats(history domain.EcoHistory, today time.Time, p EcoParams) domain.WeeklyEcoStats {
	today = domain.DateOf(today)
	from := today.AddDate(0, 0, -(ecoWindowDays - 1))
	inWindow := func(d time.Time) bool {
		d = domain.DateOf(d)
		return !d.Before(from) && !d.After(today)
	}

	var (
		stats                    domain.WeeklyEcoStats
		completedTrips           int
		weekPassengers, allSeats int
		weekCompletedRides       int
	)
	for _, trip := range history.Driven {
		if trip.Status != domain.TravelCompleted {
			continue
		}
		allSeats += trip.Passengers
		if inWindow(trip.Date) {
			completedTrips++
			weekPassengers += trip.Passengers
		}
	}
	for _, ride := range history.Rides {
		if ride.Status == domain.TravelCanceled {
			continue
		}
		if ride.Status == domain.TravelCompleted {
			allSeats++
		}
		if !inWindow(ride.Date) {
			continue
		}
		stats.ConfirmedRides++
		if ride.Status == domain.TravelCompleted {
			weekCompletedRides++
		}
	}

	if completedTrips > 0 {
		stats.AveragePassengersPerCompletedTrip = round2(float64(weekPassengers) / float64(completedTrips))
	}
	stats.WeeklyRupees = p.RupeesPerPassenger*int64(weekPassengers) + p.RupeesPerRide*int64(stats.ConfirmedRides)
	stats.CO2SavedKg = round2(p.CO2PerSeatKg * float64(weekPassengers+weekCompletedRides))
	stats.CO2SavedKgTotal = round2(p.CO2PerSeatKg * float64(allSeats))
	return stats
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
