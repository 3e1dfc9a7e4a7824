package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/service"
)

var ecoParams = service.EcoParams{CO2PerSeatKg: 2.5, RupeesPerPassenger: 5, RupeesPerRide: 2}

func TestAggregateWeeklyStats(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return today.AddDate(0, 0, n) }

	history := domain.EcoHistory{
		Driven: []domain.DrivenTrip{
			{Date: day(0), Status: domain.TravelCompleted, Passengers: 3},
			{Date: day(-6), Status: domain.TravelCompleted, Passengers: 1},
			{Date: day(-7), Status: domain.TravelCompleted, Passengers: 4}, // outside the window
			{Date: day(-1), Status: domain.TravelActive, Passengers: 2},    // not completed
			{Date: day(-2), Status: domain.TravelCanceled, Passengers: 0},
		},
		Rides: []domain.Ride{
			{Date: day(-3), Status: domain.TravelCompleted},
			{Date: day(1), Status: domain.TravelActive}, // future
			{Date: day(-1), Status: domain.TravelActive},
			{Date: day(-10), Status: domain.TravelCompleted},
		},
	}

	got := service.AggregateWeeklyStats(history, today, ecoParams)

	assert.InDelta(t, 2.0, got.AveragePassengersPerCompletedTrip, 1e-9)
	assert.Equal(t, 2, got.ConfirmedRides)
	assert.EqualValues(t, 5*4+2*2, got.WeeklyRupees)
	assert.InDelta(t, 2.5*(4+1), got.CO2SavedKg, 1e-9)
	assert.InDelta(t, 2.5*(8+2), got.CO2SavedKgTotal, 1e-9)
}

func TestAggregateWeeklyStats_Empty(t *testing.T) {
	got := service.AggregateWeeklyStats(domain.EcoHistory{}, time.Now(), ecoParams)

	assert.Equal(t, domain.WeeklyEcoStats{}, got)
}

func TestAggregateWeeklyStats_NormalisesToday(t *testing.T) {
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	history := domain.EcoHistory{Driven: []domain.DrivenTrip{{Date: today, Status: domain.TravelCompleted, Passengers: 2}}}

	got := service.AggregateWeeklyStats(history, today.Add(23*time.Hour), ecoParams)

	assert.InDelta(t, 2.0, got.AveragePassengersPerCompletedTrip, 1e-9)
}

func TestEcoService_WeeklyStats(t *testing.T) {
	store := newMemStore()
	driver := store.addUser(0)
	rider := store.addUser(50)
	now := domain.DateOf(time.Now())
	tr := store.addTravel(domain.Travel{DriverID: driver.ID, Date: now.AddDate(0, 0, -1), Price: 10})
	bookings := service.NewBookingService(store, nil)
	ctx := context.Background()
	_, err := bookings.Book(ctx, tr.ID, rider.ID)
	require.NoError(t, err)
	_, err = bookings.Accept(ctx, tr.ID, rider.ID, driver.ID)
	require.NoError(t, err)
	_, err = memTravels{store}.UpdateStatus(ctx, tr.ID, domain.TravelCompleted)
	require.NoError(t, err)
	svc := service.NewEcoService(store.Eco(), ecoParams, nil)

	driverStats, err := svc.WeeklyStats(ctx, driver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, driverStats.AveragePassengersPerCompletedTrip, 1e-9)
	assert.EqualValues(t, 5, driverStats.WeeklyRupees)

	riderStats, err := svc.WeeklyStats(ctx, rider.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, riderStats.ConfirmedRides)
	assert.InDelta(t, 2.5, riderStats.CO2SavedKg, 1e-9)

	none, err := svc.WeeklyStats(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.WeeklyEcoStats{}, none)
}
