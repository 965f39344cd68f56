package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("should reject requests over the budget with Retry-After", func(t *testing.T) {
		c := tests.NewMemoryCache()
		handler := RateLimit(c, 2, nil)(next)

		for i := 0; i < 2; i++ {
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/catalog/vehicles", nil))
			assert.Equal(t, http.StatusOK, recorder.Code)
		}

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/catalog/vehicles", nil))

		expected := models.Error{Status: http.StatusTooManyRequests, Error: []string{"TOO_MANY_REQUESTS"}}
		tests.AssertJSONResponse(t, recorder, http.StatusTooManyRequests, expected)
		assert.Equal(t, "60", recorder.Header().Get("Retry-After"))
	})

	t.Run("should key authenticated requests by user", func(t *testing.T) {
		c := tests.NewMemoryCache()
		handler := RateLimit(c, 10, nil)(next)

		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req = req.WithContext(context.WithValue(req.Context(), models.UserClaimKey{}, models.UserClaims{UserID: 7}))
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, 1, c.Requests["user:7"])
	})

	t.Run("should let requests through when the cache fails", func(t *testing.T) {
		c := tests.NewMemoryCache()
		c.Err = errors.New("connection refused")

		recorder := httptest.NewRecorder()
		RateLimit(c, 1, nil)(next).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestClientIP(t *testing.T) {
	testCases := []struct {
		name      string
		remote    string
		forwarded string
		trusted   []string
		expected  string
	}{
		{"should use the peer address", "203.0.113.9:5000", "", nil, "203.0.113.9"},
		{"should ignore forwarded headers from untrusted peers", "203.0.113.9:5000", "198.51.100.1", nil, "203.0.113.9"},
		{"should read forwarded headers from trusted proxies", "10.0.0.2:5000", "198.51.100.1", []string{"10.0.0.2"}, "198.51.100.1"},
		{
			"should skip trusted hops from the right",
			"10.0.0.2:5000",
			"198.51.100.1, 10.0.0.3",
			[]string{"10.0.0.2", "10.0.0.3"},
			"198.51.100.1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.expected, clientIP(req, tc.trusted))
		})
	}
}
