package handler

import (
	"fmt"
	"net/http"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/service"
)

// Route listing limits: ?limit= defaults to defaultRouteLimit and is capped
// at maxRouteLimit.
const (
	defaultRouteLimit = 100
	maxRouteLimit     = 500
)

// CreateTravel handles POST /travels. The session user is the driver.
func (s *Server) CreateTravel(w http.ResponseWriter, r *http.Request) {
	var body CreateTravelRequest
	if err := decodeJSON(r, &body); err != nil {
		bodyError(w, r, err)
		return
	}
	in, err := requestToTravelInput(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.travels.PublishSingle(r.Context(), session(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, travelToResponse(created))
}

// CreateRecurringTravel handles POST /travels/recurring.
func (s *Server) CreateRecurringTravel(w http.ResponseWriter, r *http.Request) {
	var body CreateRecurringTravelRequest
	if err := decodeJSON(r, &body); err != nil {
		bodyError(w, r, err)
		return
	}
	in, err := requestToRecurringInput(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	legs, err := s.travels.PublishRecurring(r.Context(), session(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, travelsToResponse(legs))
}

// GetTravel handles GET /travels/{travelId}.
func (s *Server) GetTravel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "travelId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := s.travels.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, travelToResponse(t))
}

// CancelTravel handles POST /travels/{travelId}/cancel.
func (s *Server) CancelTravel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "travelId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := s.travels.Cancel(r.Context(), id, session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, travelToResponse(t))
}

// CompleteTravel handles POST /travels/{travelId}/complete.
func (s *Server) CompleteTravel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "travelId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := s.travels.Complete(r.Context(), id, session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, travelToResponse(t))
}

// ListTravelsByRoute handles GET /travels?origin=&destination=&limit=.
// It returns every matching travel regardless of status, in departure order.
func (s *Server) ListTravelsByRoute(w http.ResponseWriter, r *http.Request) {
	origin, destination, ok := routeQuery(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	want := defaultRouteLimit
	if limit != nil && *limit >= 1 {
		want = min(*limit, maxRouteLimit)
	}

	out := []Travel{}
	for t, err := range s.travels.FindByRoute(r.Context(), origin, destination) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		out = append(out, travelToResponse(t))
		if len(out) == want {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// SearchTravels handles GET /travels/search?origin=&destination=.
// Results are ACTIVE travels grouped by recurrence series.
func (s *Server) SearchTravels(w http.ResponseWriter, r *http.Request) {
	origin, destination, ok := routeQuery(w, r)
	if !ok {
		return
	}
	groups, err := s.search.Search(r.Context(), origin, destination)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]TravelGroup, len(groups))
	for i, g := range groups {
		out[i] = groupToResponse(g)
	}
	writeJSON(w, http.StatusOK, out)
}

// ListTravelsByDriver handles GET /travels/driver/{userId}.
func (s *Server) ListTravelsByDriver(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	travels, err := s.travels.ListByDriver(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, travelsToResponse(travels))
}

// ListEnrolledTravels handles GET /travels/enrolled/{userId}.
// Users may only list their own enrollments.
func (s *Server) ListEnrolledTravels(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := requireSelf(r, userID); err != nil {
		writeError(w, r, err)
		return
	}
	travels, err := s.travels.ListEnrolledByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, travelsToResponse(travels))
}

func routeQuery(w http.ResponseWriter, r *http.Request) (origin, destination string, ok bool) {
	origin, err := queryString(r, "origin")
	if err != nil {
		badRequest(w, err.Error())
		return "", "", false
	}
	destination, err = queryString(r, "destination")
	if err != nil {
		badRequest(w, err.Error())
		return "", "", false
	}
	return origin, destination, true
}

// --- mapping helpers --------------------------------------------------------

// requestToTravelInput converts a CreateTravelRequest body into service input.
// Returns domain.ErrValidation if required fields are missing or malformed.
func requestToTravelInput(body CreateTravelRequest) (service.TravelInput, error) {
	if body.Date == nil {
		return service.TravelInput{}, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	tod, price, err := parseTimeAndPrice(body.Time, body.Price)
	if err != nil {
		return service.TravelInput{}, err
	}
	return service.TravelInput{
		Origin:            body.Origin,
		Destination:       body.Destination,
		Date:              body.Date.Time,
		Time:              tod,
		Price:             price,
		OriginCoords:      body.OriginCoords,
		DestinationCoords: body.DestinationCoords,
	}, nil
}

// requestToRecurringInput converts a CreateRecurringTravelRequest into service input.
func requestToRecurringInput(body CreateRecurringTravelRequest) (service.RecurringInput, error) {
	if body.StartDate == nil || body.EndDate == nil {
		return service.RecurringInput{}, fmt.Errorf("%w: startDate and endDate are required", domain.ErrValidation)
	}
	tod, price, err := parseTimeAndPrice(body.Time, body.Price)
	if err != nil {
		return service.RecurringInput{}, err
	}
	return service.RecurringInput{
		Origin:            body.Origin,
		Destination:       body.Destination,
		StartDate:         body.StartDate.Time,
		EndDate:           body.EndDate.Time,
		Time:              tod,
		Price:             price,
		OriginCoords:      body.OriginCoords,
		DestinationCoords: body.DestinationCoords,
	}, nil
}

func parseTimeAndPrice(raw string, price *int64) (domain.TimeOfDay, int64, error) {
	if raw == "" {
		return 0, 0, fmt.Errorf("%w: time is required", domain.ErrValidation)
	}
	tod, err := domain.ParseTimeOfDay(raw)
	if err != nil {
		return 0, 0, err
	}
	if price == nil {
		return 0, 0, fmt.Errorf("%w: price is required", domain.ErrValidation)
	}
	return tod, *price, nil
}
