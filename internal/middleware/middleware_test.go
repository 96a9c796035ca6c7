package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetTenantFromContext(r.Context())))
})

func TestParseAPIKeys(t *testing.T) {
	keys, err := ParseAPIKeys([]string{"acme:k1", " bolt:k2:x "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"acme": "k1", "bolt": "k2:x"}, keys)

	_, err = ParseAPIKeys([]string{"acme"})
	assert.Error(t, err)
	_, err = ParseAPIKeys([]string{"bad tenant:k"})
	assert.Error(t, err)
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"acme": "secret"})(okHandler)

	cases := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong", "Bearer nope", http.StatusUnauthorized, ""},
		{"bearer", "Bearer secret", http.StatusOK, "acme"},
		{"bare", "secret", http.StatusOK, "acme"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/acme/runs/latest", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestRequireTenant(t *testing.T) {
	r := chi.NewRouter()
	r.Use(APIKeyAuth(map[string]string{"acme": "k"}))
	r.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(RequireTenant)
		rt.Get("/ping", okHandler)
	})

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "k")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do("/v1/acme/ping"))
	assert.Equal(t, http.StatusForbidden, do("/v1/bolt/ping"))
	assert.Equal(t, http.StatusBadRequest, do("/v1/b%20d/ping"))
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))

	now = now.Add(time.Hour)
	rl.Prune(idleBucketTTL)
	assert.Empty(t, rl.buckets)
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewRateLimiter(1, 0.001))(okHandler)
	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestHealthHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	down := CheckFunc(func(context.Context) error { return errors.New("db down") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": ok})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"db": down})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "db down")

	rec = httptest.NewRecorder()
	ReadinessHandler(map[string]HealthChecker{"db": down})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme_01"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("a/b"))

	assert.NoError(t, ValidateRunID("0b4a2f3e-1c2d-4e5f-8a9b-0c1d2e3f4a5b-audience_affinity"))
	assert.Error(t, ValidateRunID("not-a-run"))

	assert.NoError(t, ValidateObjectKey("acme/2024-05/ads.xlsx"))
	assert.Error(t, ValidateObjectKey("/etc/passwd.csv"))
	assert.Error(t, ValidateObjectKey("acme/../other/ads.xlsx"))
	assert.Error(t, ValidateObjectKey("acme/ads.pdf"))

	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(500))
	assert.Equal(t, "ab", SanitizeString(" a\x00b "))
}
