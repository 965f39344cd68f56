package services

import (
	"encoding/json"
	"testing"

	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestService(t *testing.T) (RequestService, *tests.MockPublisher, *MockActivityLogger) {
	t.Helper()
	publisher := &tests.MockPublisher{}
	activityLogger := &MockActivityLogger{}
	return RequestService{
		DB:             tests.NewSQLiteDB(t),
		Publisher:      publisher,
		ActivityLogger: activityLogger,
	}, publisher, activityLogger
}

func leadBody(vehicleID *uint) models.InfoRequestBody {
	return models.InfoRequestBody{
		VehicleID:      vehicleID,
		FirstName:      "Giulia",
		LastName:       "Verdi",
		Email:          "giulia@example.com",
		Phone:          "+39 333 1234567",
		Message:        "Is the hybrid available in white?",
		PrivacyConsent: true,
	}
}

func setLeadEmail(t *testing.T, service RequestService, email string) {
	t.Helper()
	settings, err := sql.GetSettings(service.DB)
	require.NoError(t, err)
	require.NoError(t, service.DB.Model(&settings).Update("lead_email", email).Error)
}

func TestCreateRequest(t *testing.T) {
	t.Run("should store the lead and notify the lead address", func(t *testing.T) {
		service, publisher, activityLogger := newRequestService(t)
		seed := seedVehicles(t, service.DB)
		setLeadEmail(t, service, "sales@example.com")

		request, err := service.CreateRequest(testLogger, models.UserClaims{}, nil, leadBody(&seed.panda.ID))
		require.NoError(t, err)
		assert.NotZero(t, request.ID)
		assert.Equal(t, models.InfoRequestStatusNew, request.Status)
		assert.Equal(t, []string{"INFO_REQUEST_CREATED"}, activityLogger.Messages)

		require.Equal(t, []string{events.LeadCreatedName}, publisher.EventTypes())
		var env struct {
			Payload events.LeadCreatedPayload `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(publisher.Messages[0].Payload, &env))
		assert.Equal(t, "sales@example.com", env.Payload.To)
		assert.Equal(t, "Fiat Panda 1.0 Hybrid", env.Payload.Vehicle)
		assert.Equal(t, request.ID, env.Payload.RequestID)
	})

	t.Run("should not notify without a lead address", func(t *testing.T) {
		service, publisher, _ := newRequestService(t)

		_, err := service.CreateRequest(testLogger, models.UserClaims{}, nil, leadBody(nil))
		require.NoError(t, err)
		assert.Empty(t, publisher.EventTypes())
	})

	t.Run("should require privacy consent", func(t *testing.T) {
		service, _, _ := newRequestService(t)
		body := leadBody(nil)
		body.PrivacyConsent = false

		_, err := service.CreateRequest(testLogger, models.UserClaims{}, nil, body)
		assertAPIError(t, err, 400, apierrors.CodePrivacyConsentMissing)

		var count int64
		require.NoError(t, service.DB.Model(&models.InfoRequest{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("should refuse an unpublished vehicle", func(t *testing.T) {
		service, _, _ := newRequestService(t)
		seed := seedVehicles(t, service.DB)

		_, err := service.CreateRequest(testLogger, models.UserClaims{}, nil, leadBody(&seed.draft.ID))
		assertAPIError(t, err, 404, apierrors.CodeVehicleNotFound)
	})
}

func TestManageRequests(t *testing.T) {
	service, _, activityLogger := newRequestService(t)
	seed := seedVehicles(t, service.DB)
	admin := createUser(t, service.DB, "admin", models.RoleAdmin)

	first, err := service.CreateRequest(testLogger, models.UserClaims{}, nil, leadBody(&seed.panda.ID))
	require.NoError(t, err)
	second, err := service.CreateRequest(testLogger, models.UserClaims{}, nil, leadBody(nil))
	require.NoError(t, err)

	t.Run("should list the newest request first", func(t *testing.T) {
		requests, err := service.GetRequestList(testLogger, claimsFor(admin), nil, models.InfoRequestListQueryParams{})
		require.NoError(t, err)
		require.Len(t, requests, 2)
		assert.Equal(t, second.ID, requests[0].ID)
		require.NotNil(t, requests[1].Vehicle)
		assert.Equal(t, "Panda", requests[1].Vehicle.Model)
	})

	t.Run("should update the status and filter on it", func(t *testing.T) {
		updated, err := service.UpdateStatus(testLogger, claimsFor(admin), []uint{first.ID},
			models.InfoRequestStatusBody{Status: models.InfoRequestStatusContacted})
		require.NoError(t, err)
		assert.Equal(t, models.InfoRequestStatusContacted, updated.Status)

		requests, err := service.GetRequestList(testLogger, claimsFor(admin), nil,
			models.InfoRequestListQueryParams{Status: "contacted"})
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, first.ID, requests[0].ID)
		assert.Contains(t, activityLogger.Messages, "INFO_REQUEST_UPDATED")
	})

	t.Run("should delete a request", func(t *testing.T) {
		require.NoError(t, service.DeleteRequest(testLogger, claimsFor(admin), []uint{second.ID}))

		_, err := service.GetRequest(testLogger, claimsFor(admin), []uint{second.ID})
		assertAPIError(t, err, 404, apierrors.CodeRequestNotFound)
	})
}
