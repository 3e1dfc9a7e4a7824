package handler

import (
	"net/http"

	"github.com/mobility-sharing/backend/internal/service"
)

// RegisterUser handles POST /users. It is the only data route that does not
// need a session; the returned id is what clients send as X-User-ID.
func (s *Server) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var body UserRequest
	if err := decodeJSON(r, &body); err != nil {
		bodyError(w, r, err)
		return
	}
	var opening int64
	if body.RupeeWallet != nil {
		opening = *body.RupeeWallet
	}
	u, err := s.users.Register(r.Context(), profileInput(body), opening)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userToResponse(u))
}

// GetMe handles GET /users/me.
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.GetByID(r.Context(), session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToResponse(u))
}

// UpdateMe handles PUT /users/me. The wallet cannot be changed here.
func (s *Server) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var body UserRequest
	if err := decodeJSON(r, &body); err != nil {
		bodyError(w, r, err)
		return
	}
	if body.RupeeWallet != nil {
		badRequest(w, "rupeeWallet is read-only")
		return
	}
	u, err := s.users.UpdateProfile(r.Context(), session(r), profileInput(body))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userToResponse(u))
}

// GetMyEcoStats handles GET /users/me/eco-stats.
func (s *Server) GetMyEcoStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.eco.WeeklyStats(r.Context(), session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func profileInput(body UserRequest) service.ProfileInput {
	return service.ProfileInput{Name: body.Name, Email: body.Email, Username: body.Username}
}
