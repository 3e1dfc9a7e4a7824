// Package middleware provides reusable HTTP middleware for the Mobility Sharing API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// preflightMaxAge is how long, in seconds, browsers may cache a preflight.
const preflightMaxAge = 600

// NewCORSHandler returns a middleware that lets the mobile and web clients at
// allowedOrigins call the API. Entries are full origins (scheme + host, no
// trailing slash). The session header must be allowed or browsers strip it
// from every cross-origin call.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type", SessionHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         preflightMaxAge,
	})
	return c.Handler
}
