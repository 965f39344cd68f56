package portal

import (
	"errors"
	"net/http"
	"testing"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Run("should keep a JSON body of a success", func(t *testing.T) {
		result := classify(http.StatusOK, "200 OK", "application/json; charset=utf-8", []byte(`{"siteName":"RentDesk"}`))
		assert.Equal(t, ResultOK, result.Kind)
		assert.NoError(t, result.Err())

		var settings models.PublicSettings
		require.NoError(t, result.Decode(&settings))
		assert.Equal(t, "RentDesk", settings.SiteName)
	})

	t.Run("should report a success without a JSON body", func(t *testing.T) {
		for _, result := range []Result{
			classify(http.StatusNoContent, "204 No Content", "", nil),
			classify(http.StatusOK, "200 OK", "text/html", []byte("<html></html>")),
			classify(http.StatusOK, "200 OK", "application/json", []byte("  ")),
		} {
			assert.Equal(t, ResultNoBody, result.Kind)
			assert.NoError(t, result.Err())
			assert.ErrorIs(t, result.Decode(&struct{}{}), ErrEmptyResponse)
		}
	})

	t.Run("should take the message and codes of an error body", func(t *testing.T) {
		result := classify(http.StatusUnauthorized, "401 Unauthorized", "application/json",
			[]byte(`{"status":401,"error":["INVALID_CODE"],"message":"The code is not valid"}`))

		assert.Equal(t, ResultError, result.Kind)
		assert.Equal(t, ErrorStatus, result.Class)
		assert.Equal(t, "The code is not valid", result.Message)
		assert.Equal(t, []string{"INVALID_CODE"}, result.Codes)

		var requestErr *RequestError
		require.ErrorAs(t, result.Err(), &requestErr)
		assert.True(t, requestErr.IsClientError())
		assert.Equal(t, http.StatusUnauthorized, requestErr.Status)
	})

	t.Run("should fall back to the status text", func(t *testing.T) {
		result := classify(http.StatusBadGateway, "502 Bad Gateway", "text/plain", []byte("upstream down"))
		assert.Equal(t, ResultError, result.Kind)
		assert.Equal(t, "Bad Gateway", result.Message)
		assert.Empty(t, result.Codes)
	})

	t.Run("should reject a malformed success body on decode", func(t *testing.T) {
		result := classify(http.StatusOK, "200 OK", "application/json", []byte(`{"siteName":`))
		assert.ErrorIs(t, result.Decode(&models.PublicSettings{}), ErrUnexpectedResponse)
	})
}

func TestClient(t *testing.T) {
	t.Run("should read the public settings", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handle(http.MethodGet, "/api/settings/public", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, models.PublicSettings{SiteName: "RentDesk", AutoLogoutMinutes: 15})
		})

		settings, err := api.client(t).PublicSettings(t.Context())
		require.NoError(t, err)
		assert.Equal(t, models.PublicSettings{SiteName: "RentDesk", AutoLogoutMinutes: 15}, settings)
	})

	t.Run("should classify an unreachable server as a transport failure", func(t *testing.T) {
		api := newFakeAPI(t)
		client := api.client(t)
		api.server.Close()

		result := client.do(t.Context(), http.MethodGet, "/api/settings/public", nil)
		assert.Equal(t, ResultError, result.Kind)
		assert.Equal(t, ErrorTransport, result.Class)
		assert.Equal(t, GenericErrorMessage, result.Message)

		var requestErr *RequestError
		require.ErrorAs(t, result.Err(), &requestErr)
		assert.False(t, requestErr.IsClientError())
		assert.NotNil(t, errors.Unwrap(requestErr))
	})
}
