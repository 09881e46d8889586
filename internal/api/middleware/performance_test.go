package middleware_test

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bedfinder/backend/internal/api/middleware"
)

func okJSON(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func TestETag_NotModified(t *testing.T) {
	handler := middleware.ETag(okJSON(`{"facilities":[],"count":0}`))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/facilities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/facilities", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestETag_SkipsStreams(t *testing.T) {
	handler := middleware.ETag(okJSON("event: connected\n\n"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/changes?table=hospitals", nil))

	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestCompression(t *testing.T) {
	handler := middleware.Compression(okJSON(`{"status":"ok"}`))

	req := httptest.NewRequest(http.MethodGet, "/api/facilities", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	reader, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCacheControl(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/facilities/nearby", "private, max-age=15, must-revalidate"},
		{http.MethodPost, "/api/bookings", "no-store"},
		{http.MethodGet, "/api/bookings/mine", "private, no-cache, must-revalidate"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		middleware.CacheControl(okJSON("{}")).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, rec.Header().Get("Cache-Control"), tt.path)
	}
}

func TestCORS(t *testing.T) {
	handler := middleware.CORS([]string{"https://beds.example.org"})(okJSON("{}"))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/bookings", nil)
		req.Header.Set("Origin", "https://beds.example.org")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://beds.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/facilities", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
