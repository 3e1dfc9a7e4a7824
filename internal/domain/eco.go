package domain

import "time"

// WeeklyEcoStats is the sustainability summary shown to a user for the
// current week.
type WeeklyEcoStats struct {
	AveragePassengersPerCompletedTrip float64 `json:"averagePassengersPerCompletedTrip"`
	ConfirmedRides                    int     `json:"confirmedRides"`
	WeeklyRupees                      int64   `json:"weeklyRupees"`
	CO2SavedKg                        float64 `json:"co2SavedKg"`
	CO2SavedKgTotal                   float64 `json:"co2SavedKgTotal"`
}

// DrivenTrip is a travel the user drove with its confirmed passenger count.
type DrivenTrip struct {
	Date       time.Time
	Status     TravelStatus
	Passengers int
}

// Ride is a confirmed booking the user holds as a passenger.
type Ride struct {
	Date   time.Time
	Status TravelStatus
}

// EcoHistory is everything the eco projection reads for one user.
type EcoHistory struct {
	Driven []DrivenTrip
	Rides  []Ride
}
