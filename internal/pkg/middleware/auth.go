package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/explainbench/explain-bench/internal/pkg/errors"
)

// APIKeyAuth returns a middleware that requires the X-API-Key header (or a
// "Bearer" Authorization header) to match key. An empty key disables the
// check. Health and metrics endpoints are always allowed through.
func APIKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					provided = strings.TrimPrefix(auth, "Bearer ")
				}
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				apperrors.WriteError(w, apperrors.UnauthorizedError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublicPath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}
