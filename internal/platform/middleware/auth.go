package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

type TokenValidator func(token string, r *http.Request) bool

// MasterToken accepts only the configured token. An empty token rejects everything.
func MasterToken(expected string) TokenValidator {
	return func(token string, _ *http.Request) bool {
		if expected == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
	}
}

// extractToken reads "Authorization: Bearer <t>" or the apikey header.
func extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.Header.Get("apikey"))
}

func BearerAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if !validator(token, r) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
