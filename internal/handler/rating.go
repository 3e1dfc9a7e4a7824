package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/service"
)

// CreateRating handles POST /ratings. The session user is the rater.
func (s *Server) CreateRating(w http.ResponseWriter, r *http.Request) {
	var body CreateRatingRequest
	if err := decodeJSON(r, &body); err != nil {
		bodyError(w, r, err)
		return
	}
	in := service.RatingInput{TravelID: body.TravelID, Rating: body.Rating}
	if body.Comment != nil {
		in.Comment = *body.Comment
	}
	rt, err := s.ratings.Submit(r.Context(), session(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ratingToResponse(rt))
}

// GetRating handles GET /ratings/{ratingId}.
func (s *Server) GetRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "ratingId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rt, err := s.ratings.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingToResponse(rt))
}

// ListUnratedTravels handles GET /travels/unrated/{userId}.
func (s *Server) ListUnratedTravels(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := requireSelf(r, userID); err != nil {
		writeError(w, r, err)
		return
	}
	travels, err := s.ratings.GetUnrated(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, travelsToResponse(travels))
}

// ListRatingsGiven handles GET /ratings/given/{userId}?page=&limit=.
func (s *Server) ListRatingsGiven(w http.ResponseWriter, r *http.Request) {
	s.listRatings(w, r, s.ratings.ListGiven)
}

// ListRatingsReceived handles GET /ratings/received/{userId}?page=&limit=.
func (s *Server) ListRatingsReceived(w http.ResponseWriter, r *http.Request) {
	s.listRatings(w, r, s.ratings.ListReceived)
}

func (s *Server) listRatings(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error)) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	params, err := pagination(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	page, err := list(r.Context(), userID, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RatingPage{
		Data: ratingsToResponse(page.Items),
		Pagination: Pagination{
			Page:       params.Page,
			Limit:      params.Limit,
			Total:      int(page.Total),
			TotalPages: page.TotalPages(params.Limit),
		},
	})
}

// ListRatingsByTravel handles GET /ratings/travel/{travelId}.
func (s *Server) ListRatingsByTravel(w http.ResponseWriter, r *http.Request) {
	travelID, err := pathUUID(r, "travelId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ratings, err := s.ratings.ListByTravel(r.Context(), travelID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ratingsToResponse(ratings))
}
