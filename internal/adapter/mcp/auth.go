package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// headerAPIKey is accepted as an alternative to the Authorization header.
const headerAPIKey = "X-API-Key"

// AuthMiddleware guards next with a static API key, taken from
// "Authorization: Bearer <key>", a bare Authorization value, or X-API-Key.
// An empty apiKey disables the check.
func AuthMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := presentedKey(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="chatforge-mcp"`)
			http.Error(w, "missing credentials", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			http.Error(w, "invalid credentials", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func presentedKey(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, found := strings.CutPrefix(auth, "Bearer "); found {
			return strings.TrimSpace(token), true
		}
		return auth, true
	}
	if key := r.Header.Get(headerAPIKey); key != "" {
		return key, true
	}
	return "", false
}
