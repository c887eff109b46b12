package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type requesterCtxKey struct{}

// RequesterFromContext returns the entity ID the caller authenticated
// as, or "" if none was set (anonymous / auth disabled).
func RequesterFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requesterCtxKey{}).(string)
	return v
}

// WithRequester attaches a requester ID to a context, exported for use
// by transports (like MCP) that authenticate outside the HTTP middleware
// chain but still want to flow the requester through the same context key.
func WithRequester(ctx context.Context, entityID string) context.Context {
	return context.WithValue(ctx, requesterCtxKey{}, entityID)
}

// APIKeyAuth returns middleware that validates a shared-secret API key
// found in the X-API-Key header, an Authorization: Bearer header, or an
// api_key query parameter (§4.6; the query form is permitted but is the
// least secure of the three since it can leak into access logs).
// When enabled is false the middleware is a no-op, matching local/dev
// deployments that opt out of auth entirely.
func APIKeyAuth(secretKey string, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			provided := extractAPIKey(r)
			if provided == "" || !constantTimeEqual(provided, secretKey) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"missing or invalid API key"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("api_key")
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		// still run a comparison so key length isn't observable via timing
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// AdminBasicAuth returns middleware protecting the admin endpoints with
// HTTP Basic authentication, comparing the supplied password against a
// bcrypt hash configured at startup.
func AdminBasicAuth(username string, passwordHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 {
				unauthorized(w)
				return
			}
			if err := bcrypt.CompareHashAndPassword(passwordHash, []byte(pass)); err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="engram-admin"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
