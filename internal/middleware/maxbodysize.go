package middleware

import "net/http"

// NewMaxBodySizeHandler caps request bodies at limit bytes. A request that
// declares a larger Content-Length is answered with 413 and the error envelope
// before the handler runs. Streamed bodies are wrapped in http.MaxBytesReader,
// so the handler's read fails with *http.MaxBytesError past the limit.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
