package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
)

// BookTravel handles POST /travels/{travelId}/bookings.
// The session user books a seat for themselves.
func (s *Server) BookTravel(w http.ResponseWriter, r *http.Request) {
	travelID, err := pathUUID(r, "travelId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	b, err := s.bookings.Book(r.Context(), travelID, session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookingToResponse(b))
}

// ListBookings handles GET /travels/{travelId}/bookings.
func (s *Server) ListBookings(w http.ResponseWriter, r *http.Request) {
	travelID, err := pathUUID(r, "travelId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	bookings, err := s.bookings.ListForTravel(r.Context(), travelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingsToResponse(bookings))
}

// GetBooking handles GET /travels/{travelId}/bookings/{userId}.
func (s *Server) GetBooking(w http.ResponseWriter, r *http.Request) {
	travelID, userID, ok := bookingPath(w, r)
	if !ok {
		return
	}
	b, err := s.bookings.GetStatus(r.Context(), userID, travelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingToResponse(b))
}

// AcceptBooking handles POST /travels/{travelId}/bookings/{userId}/accept.
// Only the driver may accept.
func (s *Server) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.bookings.Accept)
}

// RejectBooking handles POST /travels/{travelId}/bookings/{userId}/reject.
// Only the driver may reject.
func (s *Server) RejectBooking(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.bookings.Reject)
}

// CancelBooking handles POST /travels/{travelId}/bookings/{userId}/cancel.
// The driver rejects, the passenger unenrolls.
func (s *Server) CancelBooking(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, s.bookings.Cancel)
}

// decide runs a booking transition on behalf of the session user.
func (s *Server) decide(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, travelID, userID, requesterID uuid.UUID) (domain.UserTravel, error)) {
	travelID, userID, ok := bookingPath(w, r)
	if !ok {
		return
	}
	b, err := op(r.Context(), travelID, userID, session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookingToResponse(b))
}

// BookGroup handles POST /bookings/group.
// A complete group answers 201. A group that stopped part-way answers with
// the status of the failing member's error and the partial result as body.
func (s *Server) BookGroup(w http.ResponseWriter, r *http.Request) {
	var body BookGroupRequest
	if err := decodeJSON(r, &body); err != nil {
		bodyError(w, r, err)
		return
	}
	res, err := s.bookings.BookGroup(r.Context(), body.TravelIDs, session(r), body.Compensate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !res.Complete() {
		status, _ = classify(res.Err)
		if status == http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "group booking stopped", "path", r.URL.Path, "failed_travel_id", res.FailedTravelID, "error", res.Err)
		}
	}
	writeJSON(w, status, groupBookingToResponse(res))
}

func bookingPath(w http.ResponseWriter, r *http.Request) (travelID, userID uuid.UUID, ok bool) {
	travelID, err := pathUUID(r, "travelId")
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	userID, err = pathUUID(r, "userId")
	if err != nil {
		badRequest(w, err.Error())
		return uuid.Nil, uuid.Nil, false
	}
	return travelID, userID, true
}
