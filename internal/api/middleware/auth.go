package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/edvin/serverdir/internal/api/response"
)

// AdminAuth protects operator endpoints with a static Bearer token. An
// empty configured token disables the endpoints entirely rather than
// leaving them open.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				response.WriteError(w, http.StatusUnauthorized, "unauthorized", "admin API is not configured")
				return
			}

			presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				response.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
