package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
)

// SessionHeader carries the acting user's id.
const SessionHeader = "X-User-ID"

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(domain.Session)
	return s, ok
}

// RequireSession rejects requests without a well-formed X-User-ID header with
// 401 and otherwise stores the session in the request context.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(SessionHeader))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing "+SessionHeader+" header")
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "malformed "+SessionHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), domain.Session{UserID: id})))
	})
}

// writeError writes the API's error envelope. Middleware runs before the
// handler package, so it cannot use the handler's writer.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
