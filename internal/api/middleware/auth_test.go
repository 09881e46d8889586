package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedfinder/backend/internal/api/middleware"
	"github.com/bedfinder/backend/internal/domain/entities"
	apperrors "github.com/bedfinder/backend/pkg/errors"
)

type staticSessions map[string]*entities.Identity

func (s staticSessions) Resolve(ctx context.Context, token string) (*entities.Identity, error) {
	identity, ok := s[token]
	if !ok {
		return nil, apperrors.NewUnauthorizedError("session expired")
	}
	return identity, nil
}

func captureIdentity(seen **entities.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = middleware.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate(t *testing.T) {
	nurse := &entities.Identity{UserID: "staff-1", Role: entities.RoleStaff}
	sessions := staticSessions{"good": nurse}

	t.Run("anonymous requests pass through", func(t *testing.T) {
		var seen *entities.Identity
		handler := middleware.Authenticate(sessions)(captureIdentity(&seen))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/nearby", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("bearer token attaches identity", func(t *testing.T) {
		var seen *entities.Identity
		handler := middleware.Authenticate(sessions)(captureIdentity(&seen))

		req := httptest.NewRequest(http.MethodGet, "/api/bookings/pending", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Same(t, nurse, seen)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		var seen *entities.Identity
		handler := middleware.Authenticate(sessions)(captureIdentity(&seen))

		req := httptest.NewRequest(http.MethodGet, "/api/bookings/mine", nil)
		req.Header.Set("Authorization", "Bearer stale")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		assert.JSONEq(t, `{"error":"session expired"}`, rec.Body.String())
	})

	t.Run("access_token only counts on the change stream", func(t *testing.T) {
		var seen *entities.Identity
		handler := middleware.Authenticate(sessions)(captureIdentity(&seen))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/changes?table=bookings&access_token=good", nil))
		assert.Same(t, nurse, seen)

		seen = nil
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings/mine?access_token=good", nil))
		assert.Nil(t, seen)
	})
}
