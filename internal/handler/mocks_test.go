package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/handler"
	"github.com/mobility-sharing/backend/internal/middleware"
	"github.com/mobility-sharing/backend/internal/service"
)

// ---- mocks -----------------------------------------------------------------
// Each mock is a hand-written test double with one function field per
// method. Set only the ones your test needs.

type mockTravelServicer struct {
	publishSingle      func(ctx context.Context, driverID uuid.UUID, in service.TravelInput) (domain.Travel, error)
	publishRecurring   func(ctx context.Context, driverID uuid.UUID, in service.RecurringInput) ([]domain.Travel, error)
	cancel             func(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error)
	complete           func(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error)
	findByRoute        func(ctx context.Context, origin, destination string) iter.Seq2[domain.Travel, error]
	getByID            func(ctx context.Context, id uuid.UUID) (domain.Travel, error)
	listByDriver       func(ctx context.Context, driverID uuid.UUID) ([]domain.Travel, error)
	listEnrolledByUser func(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error)
}

func (m *mockTravelServicer) PublishSingle(ctx context.Context, driverID uuid.UUID, in service.TravelInput) (domain.Travel, error) {
	return m.publishSingle(ctx, driverID, in)
}
func (m *mockTravelServicer) PublishRecurring(ctx context.Context, driverID uuid.UUID, in service.RecurringInput) ([]domain.Travel, error) {
	return m.publishRecurring(ctx, driverID, in)
}
func (m *mockTravelServicer) Cancel(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error) {
	return m.cancel(ctx, travelID, requesterID)
}
func (m *mockTravelServicer) Complete(ctx context.Context, travelID, requesterID uuid.UUID) (domain.Travel, error) {
	return m.complete(ctx, travelID, requesterID)
}
func (m *mockTravelServicer) FindByRoute(ctx context.Context, origin, destination string) iter.Seq2[domain.Travel, error] {
	return m.findByRoute(ctx, origin, destination)
}
func (m *mockTravelServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Travel, error) {
	return m.getByID(ctx, id)
}
func (m *mockTravelServicer) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Travel, error) {
	return m.listByDriver(ctx, driverID)
}
func (m *mockTravelServicer) ListEnrolledByUser(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	return m.listEnrolledByUser(ctx, userID)
}

type mockSearchServicer struct {
	search func(ctx context.Context, origin, destination string) ([]domain.TravelGroup, error)
}

func (m *mockSearchServicer) Search(ctx context.Context, origin, destination string) ([]domain.TravelGroup, error) {
	return m.search(ctx, origin, destination)
}

type mockBookingServicer struct {
	book          func(ctx context.Context, travelID, userID uuid.UUID) (domain.UserTravel, error)
	bookGroup     func(ctx context.Context, travelIDs []uuid.UUID, userID uuid.UUID, compensate bool) (domain.GroupBookingResult, error)
	accept        func(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error)
	reject        func(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error)
	cancel        func(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error)
	getStatus     func(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error)
	listForTravel func(ctx context.Context, travelID uuid.UUID) ([]domain.UserTravel, error)
}

func (m *mockBookingServicer) Book(ctx context.Context, travelID, userID uuid.UUID) (domain.UserTravel, error) {
	return m.book(ctx, travelID, userID)
}
func (m *mockBookingServicer) BookGroup(ctx context.Context, travelIDs []uuid.UUID, userID uuid.UUID, compensate bool) (domain.GroupBookingResult, error) {
	return m.bookGroup(ctx, travelIDs, userID, compensate)
}
func (m *mockBookingServicer) Accept(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error) {
	return m.accept(ctx, travelID, userID, requesterID)
}
func (m *mockBookingServicer) Reject(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error) {
	return m.reject(ctx, travelID, userID, requesterID)
}
func (m *mockBookingServicer) Cancel(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error) {
	return m.cancel(ctx, travelID, userID, requesterID)
}
func (m *mockBookingServicer) GetStatus(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error) {
	return m.getStatus(ctx, userID, travelID)
}
func (m *mockBookingServicer) ListForTravel(ctx context.Context, travelID uuid.UUID) ([]domain.UserTravel, error) {
	return m.listForTravel(ctx, travelID)
}

type mockRatingServicer struct {
	getUnrated   func(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error)
	submit       func(ctx context.Context, ratingUserID uuid.UUID, in service.RatingInput) (domain.Rating, error)
	getByID      func(ctx context.Context, id uuid.UUID) (domain.Rating, error)
	listGiven    func(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error)
	listReceived func(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error)
	listByTravel func(ctx context.Context, travelID uuid.UUID) ([]domain.Rating, error)
}

func (m *mockRatingServicer) GetUnrated(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	return m.getUnrated(ctx, userID)
}
func (m *mockRatingServicer) Submit(ctx context.Context, ratingUserID uuid.UUID, in service.RatingInput) (domain.Rating, error) {
	return m.submit(ctx, ratingUserID, in)
}
func (m *mockRatingServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Rating, error) {
	return m.getByID(ctx, id)
}
func (m *mockRatingServicer) ListGiven(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error) {
	return m.listGiven(ctx, userID, p)
}
func (m *mockRatingServicer) ListReceived(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error) {
	return m.listReceived(ctx, userID, p)
}
func (m *mockRatingServicer) ListByTravel(ctx context.Context, travelID uuid.UUID) ([]domain.Rating, error) {
	return m.listByTravel(ctx, travelID)
}

type mockUserServicer struct {
	register      func(ctx context.Context, in service.ProfileInput, openingBalance int64) (domain.User, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.User, error)
	updateProfile func(ctx context.Context, id uuid.UUID, in service.ProfileInput) (domain.User, error)
}

func (m *mockUserServicer) Register(ctx context.Context, in service.ProfileInput, openingBalance int64) (domain.User, error) {
	return m.register(ctx, in, openingBalance)
}
func (m *mockUserServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.getByID(ctx, id)
}
func (m *mockUserServicer) UpdateProfile(ctx context.Context, id uuid.UUID, in service.ProfileInput) (domain.User, error) {
	return m.updateProfile(ctx, id, in)
}

type mockEcoServicer struct {
	weeklyStats func(ctx context.Context, userID uuid.UUID) (domain.WeeklyEcoStats, error)
}

func (m *mockEcoServicer) WeeklyStats(ctx context.Context, userID uuid.UUID) (domain.WeeklyEcoStats, error) {
	return m.weeklyStats(ctx, userID)
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

// compile-time checks: mocks and real services satisfy the handler interfaces.
var (
	_ handler.TravelServicer  = (*mockTravelServicer)(nil)
	_ handler.SearchServicer  = (*mockSearchServicer)(nil)
	_ handler.BookingServicer = (*mockBookingServicer)(nil)
	_ handler.RatingServicer  = (*mockRatingServicer)(nil)
	_ handler.UserServicer    = (*mockUserServicer)(nil)
	_ handler.EcoServicer     = (*mockEcoServicer)(nil)
	_ handler.Pinger          = (*mockPinger)(nil)

	_ handler.TravelServicer  = (*service.TravelService)(nil)
	_ handler.SearchServicer  = (*service.SearchService)(nil)
	_ handler.BookingServicer = (*service.BookingService)(nil)
	_ handler.RatingServicer  = (*service.RatingService)(nil)
	_ handler.UserServicer    = (*service.UserService)(nil)
	_ handler.EcoServicer     = (*service.EcoService)(nil)
)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given services into a chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(s handler.Services) http.Handler {
	return handler.NewServer(s).Handler()
}

// do sends a request as user (uuid.Nil sends no session header) and returns
// the recorded response.
func do(t *testing.T, h http.Handler, method, path string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set(middleware.SessionHeader, user.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error.Code
}
