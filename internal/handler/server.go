// Package handler implements the HTTP handlers for the Mobility Sharing API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, travel.go, etc.) but all share the same Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/middleware"
	"github.com/mobility-sharing/backend/internal/service"
)

// TravelServicer defines the travel registry operations the handlers use.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type TravelServicer interface {
	PublishSingle(ctx context.Context, driverID uuid.UUID, in service.TravelInput) (domain.Travel, error)
	PublishRecurring(ctx context.Context, driverID uuid.UUID, in service.RecurringInput) ([]domain.Travel, error)
	Cancel(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error)
	Complete(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error)
	FindByRoute(ctx context.Context, origin, destination string) iter.Seq2[domain.Travel, error]
	GetByID(ctx context.Context, id uuid.UUID) (domain.Travel, error)
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Travel, error)
	ListEnrolledByUser(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error)
}

// SearchServicer groups route matches for the search screen.
type SearchServicer interface {
	Search(ctx context.Context, origin, destination string) ([]domain.TravelGroup, error)
}

// BookingServicer defines the booking coordinator operations.
type BookingServicer interface {
	Book(ctx context.Context, travelID, userID uuid.UUID) (domain.UserTravel, error)
	BookGroup(ctx context.Context, travelIDs []uuid.UUID, userID uuid.UUID, compensate bool) (domain.GroupBookingResult, error)
	Accept(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error)
	Reject(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error)
	Cancel(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error)
	GetStatus(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error)
	ListForTravel(ctx context.Context, travelID uuid.UUID) ([]domain.UserTravel, error)
}

// RatingServicer defines the rating ledger operations.
type RatingServicer interface {
	GetUnrated(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error)
	Submit(ctx context.Context, ratingUserID uuid.UUID, in service.RatingInput) (domain.Rating, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Rating, error)
	ListGiven(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error)
	ListReceived(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error)
	ListByTravel(ctx context.Context, travelID uuid.UUID) ([]domain.Rating, error)
}

// UserServicer defines the profile operations.
type UserServicer interface {
	Register(ctx context.Context, in service.ProfileInput, openingBalance int64) (domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in service.ProfileInput) (domain.User, error)
}

// EcoServicer computes the weekly eco summary.
type EcoServicer interface {
	WeeklyStats(ctx context.Context, userID uuid.UUID) (domain.WeeklyEcoStats, error)
}

// Pinger reports whether a dependency is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the Server's dependencies. Nil members are allowed in
// tests that do not exercise the corresponding routes.
type Services struct {
	Travels  TravelServicer
	Search   SearchServicer
	Bookings BookingServicer
	Ratings  RatingServicer
	Users    UserServicer
	Eco      EcoServicer
	DB       Pinger
}

// Server serves every API endpoint.
// Methods are in domain-specific files but all operate on this struct.
type Server struct {
	travels  TravelServicer
	search   SearchServicer
	bookings BookingServicer
	ratings  RatingServicer
	users    UserServicer
	eco      EcoServicer
	db       Pinger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(s Services) *Server {
	return &Server{
		travels:  s.Travels,
		search:   s.Search,
		bookings: s.Bookings,
		ratings:  s.Ratings,
		users:    s.Users,
		eco:      s.Eco,
		db:       s.DB,
	}
}

// Register mounts every route on r. Everything except the health check and
// sign-up requires a session.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Post("/users", s.RegisterUser)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession)

		r.Route("/travels", func(r chi.Router) {
			r.Post("/", s.CreateTravel)
			r.Get("/", s.ListTravelsByRoute)
			r.Post("/recurring", s.CreateRecurringTravel)
			r.Get("/search", s.SearchTravels)
			r.Get("/driver/{userId}", s.ListTravelsByDriver)
			r.Get("/enrolled/{userId}", s.ListEnrolledTravels)
			r.Get("/unrated/{userId}", s.ListUnratedTravels)

			r.Route("/{travelId}", func(r chi.Router) {
				r.Get("/", s.GetTravel)
				r.Post("/cancel", s.CancelTravel)
				r.Post("/complete", s.CompleteTravel)

				r.Post("/bookings", s.BookTravel)
				r.Get("/bookings", s.ListBookings)
				r.Get("/bookings/{userId}", s.GetBooking)
				r.Post("/bookings/{userId}/accept", s.AcceptBooking)
				r.Post("/bookings/{userId}/reject", s.RejectBooking)
				r.Post("/bookings/{userId}/cancel", s.CancelBooking)
			})
		})

		r.Post("/bookings/group", s.BookGroup)

		r.Post("/ratings", s.CreateRating)
		r.Get("/ratings/given/{userId}", s.ListRatingsGiven)
		r.Get("/ratings/received/{userId}", s.ListRatingsReceived)
		r.Get("/ratings/travel/{travelId}", s.ListRatingsByTravel)
		r.Get("/ratings/{ratingId}", s.GetRating)

		r.Get("/users/me", s.GetMe)
		r.Put("/users/me", s.UpdateMe)
		r.Get("/users/me/eco-stats", s.GetMyEcoStats)
	})
}

// Handler returns a chi router serving every API route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}
