package handler

import (
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/mobility-sharing/backend/internal/domain"
)

// ---- requests --------------------------------------------------------------

// CreateTravelRequest is the body of POST /travels.
type CreateTravelRequest struct {
	Origin            string              `json:"origin"`
	Destination       string              `json:"destination"`
	Date              *openapi_types.Date `json:"date"`
	Time              string              `json:"time"`
	Price             *int64              `json:"price"`
	OriginCoords      *domain.Coordinates `json:"originCoords,omitempty"`
	DestinationCoords *domain.Coordinates `json:"destinationCoords,omitempty"`
}

// CreateRecurringTravelRequest is the body of POST /travels/recurring.
type CreateRecurringTravelRequest struct {
	Origin            string              `json:"origin"`
	Destination       string              `json:"destination"`
	StartDate         *openapi_types.Date `json:"startDate"`
	EndDate           *openapi_types.Date `json:"endDate"`
	Time              string              `json:"time"`
	Price             *int64              `json:"price"`
	OriginCoords      *domain.Coordinates `json:"originCoords,omitempty"`
	DestinationCoords *domain.Coordinates `json:"destinationCoords,omitempty"`
}

// BookGroupRequest is the body of POST /bookings/group.
type BookGroupRequest struct {
	TravelIDs  []uuid.UUID `json:"travelIds"`
	Compensate bool        `json:"compensate"`
}

// CreateRatingRequest is the body of POST /ratings.
type CreateRatingRequest struct {
	TravelID uuid.UUID `json:"travelId"`
	Rating   int       `json:"rating"`
	Comment  *string   `json:"comment,omitempty"`
}

// UserRequest is the body of POST /users and PUT /users/me.
// RupeeWallet is only accepted on registration.
type UserRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	RupeeWallet *int64 `json:"rupeeWallet,omitempty"`
}

// ---- responses -------------------------------------------------------------

// Travel is the wire form of domain.Travel.
type Travel struct {
	ID                uuid.UUID           `json:"id"`
	DriverID          uuid.UUID           `json:"driverId"`
	Origin            string              `json:"origin"`
	Destination       string              `json:"destination"`
	Date              openapi_types.Date  `json:"date"`
	Time              string              `json:"time"`
	Price             int64               `json:"price"`
	Status            domain.TravelStatus `json:"status"`
	RecurrenceID      *uuid.UUID          `json:"recurrenceId,omitempty"`
	OriginCoords      *domain.Coordinates `json:"originCoords,omitempty"`
	DestinationCoords *domain.Coordinates `json:"destinationCoords,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
}

// TravelGroup is one search result group.
type TravelGroup struct {
	RecurrenceID *uuid.UUID `json:"recurrenceId,omitempty"`
	TotalPrice   int64      `json:"totalPrice"`
	Travels      []Travel   `json:"travels"`
}

// UserTravel is the wire form of a booking.
type UserTravel struct {
	ID         uuid.UUID            `json:"id"`
	UserID     uuid.UUID            `json:"userId"`
	TravelID   uuid.UUID            `json:"travelId"`
	Status     domain.BookingStatus `json:"status"`
	HeldAmount int64                `json:"heldAmount"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// GroupBooking reports a group booking; Error is set when it stopped early.
type GroupBooking struct {
	Complete           bool                   `json:"complete"`
	Booked             []UserTravel           `json:"booked"`
	FailedTravelID     *uuid.UUID             `json:"failedTravelId,omitempty"`
	Error              *ErrorDetail           `json:"error,omitempty"`
	Compensated        []UserTravel           `json:"compensated,omitempty"`
	CompensationErrors map[string]ErrorDetail `json:"compensationErrors,omitempty"`
}

// Rating is the wire form of domain.Rating.
type Rating struct {
	ID           uuid.UUID `json:"id"`
	RatingUserID uuid.UUID `json:"ratingUserId"`
	RatedUserID  uuid.UUID `json:"ratedUserId"`
	TravelID     uuid.UUID `json:"travelId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// User is the wire form of domain.User.
type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	RupeeWallet     int64     `json:"rupeeWallet"`
	ReservedRupees  int64     `json:"reservedRupees"`
	AvailableRupees int64     `json:"availableRupees"`
	EcoRank         string    `json:"ecoRank"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Pagination describes the page returned by a paginated listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// RatingPage is a paginated rating listing.
type RatingPage struct {
	Data       []Rating   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ---- mapping helpers -------------------------------------------------------

func travelToResponse(t domain.Travel) Travel {
	return Travel{
		ID:                t.ID,
		DriverID:          t.DriverID,
		Origin:            t.Origin,
		Destination:       t.Destination,
		Date:              openapi_types.Date{Time: t.Date},
		Time:              t.Time.String(),
		Price:             t.Price,
		Status:            t.Status,
		RecurrenceID:      t.RecurrenceID,
		OriginCoords:      t.OriginCoords,
		DestinationCoords: t.DestinationCoords,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func travelsToResponse(ts []domain.Travel) []Travel {
	out := make([]Travel, len(ts))
	for i, t := range ts {
		out[i] = travelToResponse(t)
	}
	return out
}

func groupToResponse(g domain.TravelGroup) TravelGroup {
	return TravelGroup{RecurrenceID: g.RecurrenceID, TotalPrice: g.TotalPrice(), Travels: travelsToResponse(g.Travels)}
}

func bookingToResponse(b domain.UserTravel) UserTravel {
	return UserTravel{
		ID:         b.ID,
		UserID:     b.UserID,
		TravelID:   b.TravelID,
		Status:     b.Status,
		HeldAmount: b.HeldAmount,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func bookingsToResponse(bs []domain.UserTravel) []UserTravel {
	out := make([]UserTravel, len(bs))
	for i, b := range bs {
		out[i] = bookingToResponse(b)
	}
	return out
}

func groupBookingToResponse(res domain.GroupBookingResult) GroupBooking {
	out := GroupBooking{
		Complete:       res.Complete(),
		Booked:         bookingsToResponse(res.Booked),
		FailedTravelID: res.FailedTravelID,
	}
	if res.Err != nil {
		_, body := classify(res.Err)
		out.Error = &body.Error
	}
	if len(res.Compensated) > 0 {
		out.Compensated = bookingsToResponse(res.Compensated)
	}
	if len(res.CompensationErrors) > 0 {
		out.CompensationErrors = make(map[string]ErrorDetail, len(res.CompensationErrors))
		for id, err := range res.CompensationErrors {
			_, body := classify(err)
			out.CompensationErrors[id.String()] = body.Error
		}
	}
	return out
}

func ratingToResponse(rt domain.Rating) Rating {
	return Rating{
		ID:           rt.ID,
		RatingUserID: rt.RatingUserID,
		RatedUserID:  rt.RatedUserID,
		TravelID:     rt.TravelID,
		Rating:       rt.Rating,
		Comment:      rt.Comment,
		CreatedAt:    rt.CreatedAt,
	}
}

func ratingsToResponse(rs []domain.Rating) []Rating {
	out := make([]Rating, len(rs))
	for i, rt := range rs {
		out[i] = ratingToResponse(rt)
	}
	return out
}

func userToResponse(u domain.User) User {
	return User{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Username:        u.Username,
		RupeeWallet:     u.RupeeWallet,
		ReservedRupees:  u.ReservedRupees,
		AvailableRupees: u.Available(),
		EcoRank:         u.EcoRank,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
