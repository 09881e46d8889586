package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bedfinder/backend/internal/domain/entities"
	"github.com/bedfinder/backend/internal/domain/providers"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the caller's identity.
func WithIdentity(ctx context.Context, identity *entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller's identity, or nil for anonymous
// requests.
func IdentityFromContext(ctx context.Context) *entities.Identity {
	identity, _ := ctx.Value(identityKey{}).(*entities.Identity)
	return identity
}

// Authenticate resolves the bearer token, when one is sent, and attaches the
// identity to the request context. Requests without a token pass through as
// anonymous; a token that does not resolve is rejected.
func Authenticate(sessions providers.SessionProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || sessions == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := sessions.Resolve(r.Context(), token)
			if err != nil {
				message := "invalid session"
				if appErr, ok := apperrors.As(err); ok {
					message = appErr.Message
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="bedfinder"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// bearerToken reads the Authorization header. EventSource cannot set headers,
// so the stream endpoint also accepts an access_token query parameter.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if strings.HasPrefix(r.URL.Path, "/api/changes") {
		return r.URL.Query().Get("access_token")
	}
	return ""
}
