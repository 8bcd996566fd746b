package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// HTTPMiddleware validates the bearer token of protected gateway routes and
// stores its claims in the request context.
func HTTPMiddleware(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtectedRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization header required")
	}
	return bearerToken(header)
}

// isProtectedRequest matches the gateway routes of the protected gRPC methods.
func isProtectedRequest(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	// POST /v1/jobs/{name}:run -> RunJob, POST /v1/ticks -> Tick
	return strings.HasPrefix(r.URL.Path, "/v1/jobs/") || r.URL.Path == "/v1/ticks"
}
