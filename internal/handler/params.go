package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/middleware"
)

// pathUUID binds a required uuid path parameter the way generated
// oapi-codegen servers do.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return id, nil
}

// queryString binds an optional string query parameter.
func queryString(r *http.Request, name string) (string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return "", fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// queryInt binds an optional integer query parameter.
func queryInt(r *http.Request, name string) (*int, error) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return v, nil
}

// pagination reads ?page= and ?limit= (defaults: page=1, limit=20, max=100).
func pagination(r *http.Request) (domain.PaginationParams, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return domain.PaginationParams{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return domain.PaginationParams{}, err
	}
	return domain.NewPaginationParams(page, limit), nil
}

// decodeJSON reads a single JSON object from the body into dst.
// Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

// session returns the acting user. RequireSession guarantees it is present
// on every route that calls this.
func session(r *http.Request) uuid.UUID {
	s, _ := middleware.SessionFrom(r.Context())
	return s.UserID
}

// requireSelf rejects access to another user's private listings.
func requireSelf(r *http.Request, userID uuid.UUID) error {
	if session(r) != userID {
		return fmt.Errorf("%w: you may only view your own travels", domain.ErrUnauthorized)
	}
	return nil
}

// bodyError reports a decode failure: 413 for oversize bodies, 400 otherwise.
func bodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, err)
		return
	}
	badRequest(w, err.Error())
}
