package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Strob0t/TourBridge/internal/domain/tenant"
)

// KeyVerifier resolves a presented API key to the key record it matches.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, plain string) (*tenant.APIKey, error)
}

// ErrInvalidKey is returned by verifiers for unknown, revoked or malformed keys.
var ErrInvalidKey = errors.New("invalid api key")

type apiKeyCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
}

// publicPrefixes are exempt by prefix; customer tracking links carry their own token.
var publicPrefixes = []string{"/track/"}

// Auth returns middleware that binds every request to the tenant owning the
// presented API key. Keys are accepted from "Authorization: Bearer", from
// X-API-Key, and from the ?token= query parameter on /ws where browsers
// cannot set headers.
func Auth(v KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			plain, err := credential(r)
			if err != nil {
				http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}

			key, err := v.VerifyKey(r.Context(), plain)
			if err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}

			ctx := WithTenantID(r.Context(), key.TenantID)
			ctx = context.WithValue(ctx, apiKeyCtxKey{}, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isPublic(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func credential(r *http.Request) (string, error) {
	if r.URL.Path == "/ws" {
		if tok := r.URL.Query().Get("token"); tok != "" {
			return tok, nil
		}
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k, nil
	}
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errors.New("authorization required")
	}
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || tok == "" {
		return "", errors.New("invalid authorization header")
	}
	return tok, nil
}

// APIKeyFromContext returns the API key used for authentication.
func APIKeyFromContext(ctx context.Context) *tenant.APIKey {
	key, _ := ctx.Value(apiKeyCtxKey{}).(*tenant.APIKey)
	return key
}
