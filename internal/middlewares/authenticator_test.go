package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authTestJWTSecret = "test-secret-key-for-authenticator"

func TestAuthenticate(t *testing.T) {
	testUser := &models.User{
		ID:       42,
		Username: "mrossi",
		Role:     models.RoleUser,
	}

	newSession := func(t *testing.T) string {
		token, err := helpers.NewSessionToken(authTestJWTSecret, testUser, string(models.LocalProviderType), 60)
		require.NoError(t, err)
		return token
	}

	serve := func(sessions *tests.MemoryCache, req *http.Request) (*httptest.ResponseRecorder, *models.UserClaims) {
		var seen *models.UserClaims
		handler := Authenticate(authTestJWTSecret, sessions)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if claims, err := helpers.GetUserClaims(r.Context()); err == nil {
					seen = &claims
				}
				w.WriteHeader(http.StatusOK)
			}),
		)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder, seen
	}

	t.Run("should accept a session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.AddCookie(&http.Cookie{Name: configuration.SessionCookieName, Value: newSession(t)})

		recorder, claims := serve(tests.NewMemoryCache(), req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.NotNil(t, claims)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "mrossi", claims.Username)
	})

	t.Run("should accept a bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/vehicles", nil)
		req.Header.Set("Authorization", "Bearer "+newSession(t))

		recorder, claims := serve(tests.NewMemoryCache(), req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.NotNil(t, claims)
	})

	t.Run("should reject protected routes without a token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)

		recorder, _ := serve(tests.NewMemoryCache(), req)

		expected := models.Error{Status: http.StatusUnauthorized, Error: []string{"UNAUTHORIZED"}}
		tests.AssertJSONResponse(t, recorder, http.StatusUnauthorized, expected)
	})

	t.Run("should reject a challenge token used as a session", func(t *testing.T) {
		challenge, err := helpers.NewChallengeToken(authTestJWTSecret, testUser, string(models.LocalProviderType), 5)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/2fa", nil)
		req.AddCookie(&http.Cookie{Name: configuration.SessionCookieName, Value: challenge})

		recorder, _ := serve(tests.NewMemoryCache(), req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("should reject a revoked session", func(t *testing.T) {
		token := newSession(t)
		claims, err := helpers.ParseSessionToken(authTestJWTSecret, token)
		require.NoError(t, err)

		sessions := tests.NewMemoryCache()
		require.NoError(t, sessions.RevokeSession(claims.ID, time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.AddCookie(&http.Cookie{Name: configuration.SessionCookieName, Value: token})

		recorder, _ := serve(sessions, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("should return SERVICE_UNAVAILABLE when revocation cannot be checked", func(t *testing.T) {
		sessions := tests.NewMemoryCache()
		sessions.Err = errors.New("connection refused")

		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.AddCookie(&http.Cookie{Name: configuration.SessionCookieName, Value: newSession(t)})

		recorder, _ := serve(sessions, req)

		expected := models.Error{Status: http.StatusServiceUnavailable, Error: []string{"SERVICE_UNAVAILABLE"}}
		tests.AssertJSONResponse(t, recorder, http.StatusServiceUnavailable, expected)
	})

	t.Run("should let anonymous requests reach public routes", func(t *testing.T) {
		for _, route := range []struct{ method, path string }{
			{http.MethodPost, "/api/login"},
			{http.MethodPost, "/api/login/2fa"},
			{http.MethodPost, "/api/requests"},
			{http.MethodGet, "/api/catalog/vehicles"},
			{http.MethodGet, "/api/settings/public"},
			{http.MethodGet, "/api/auth/providers"},
		} {
			req := httptest.NewRequest(route.method, route.path, nil)

			recorder, claims := serve(tests.NewMemoryCache(), req)

			assert.Equal(t, http.StatusOK, recorder.Code, route.path)
			assert.Nil(t, claims, route.path)
		}
	})

	t.Run("should ignore an invalid token on public routes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
		req.AddCookie(&http.Cookie{Name: configuration.SessionCookieName, Value: "garbage"})

		recorder, claims := serve(tests.NewMemoryCache(), req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Nil(t, claims)
	})

	t.Run("should expose claims on public routes when a session is present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
		req.AddCookie(&http.Cookie{Name: configuration.SessionCookieName, Value: newSession(t)})

		recorder, claims := serve(tests.NewMemoryCache(), req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		require.NotNil(t, claims)
		assert.Equal(t, uint(42), claims.UserID)
	})

	t.Run("should protect catalog writes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/catalog/vehicles", nil)

		recorder, _ := serve(tests.NewMemoryCache(), req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestAuthorizeRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	withClaims := func(role models.Role) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		ctx := context.WithValue(req.Context(), models.UserClaimKey{}, models.UserClaims{UserID: 1, Role: role})
		return req.WithContext(ctx)
	}

	t.Run("should let admins through", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		AuthorizeRole(models.RoleAdmin)(next).ServeHTTP(recorder, withClaims(models.RoleAdmin))
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("should forbid regular users on admin routes", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		AuthorizeRole(models.RoleAdmin)(next).ServeHTTP(recorder, withClaims(models.RoleUser))

		expected := models.Error{Status: http.StatusForbidden, Error: []string{"FORBIDDEN"}}
		tests.AssertJSONResponse(t, recorder, http.StatusForbidden, expected)
	})

	t.Run("should return UNAUTHORIZED without claims", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		AuthorizeRole(models.RoleAdmin)(next).ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
