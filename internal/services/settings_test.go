package services

import (
	"testing"

	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/tests"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	activityLogger := &MockActivityLogger{}
	service := SettingsService{DB: tests.NewSQLiteDB(t), ActivityLogger: activityLogger}
	admin := models.UserClaims{UserID: 1, Role: models.RoleAdmin}

	t.Run("should create the defaults on first read", func(t *testing.T) {
		public, err := service.GetPublicSettings(testLogger, models.UserClaims{}, nil)
		require.NoError(t, err)
		assert.Equal(t, models.PublicSettings{SiteName: configuration.AppName}, public)
	})

	t.Run("should store the idle timeout and lead address", func(t *testing.T) {
		settings, err := service.UpdateSettings(testLogger, admin, nil, models.SettingsBody{
			SiteName: "Rent Milano", AutoLogoutMinutes: 15, LeadEmail: "sales@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "Rent Milano", settings.SiteName)
		assert.Equal(t, 15, settings.AutoLogoutMinutes)
		assert.Equal(t, "sales@example.com", settings.LeadEmail)

		public, err := service.GetPublicSettings(testLogger, models.UserClaims{}, nil)
		require.NoError(t, err)
		assert.Equal(t, models.PublicSettings{SiteName: "Rent Milano", AutoLogoutMinutes: 15}, public)
	})

	t.Run("should write zero values to disable the idle timeout", func(t *testing.T) {
		settings, err := service.UpdateSettings(testLogger, admin, nil, models.SettingsBody{SiteName: "Rent Milano"})
		require.NoError(t, err)
		assert.Zero(t, settings.AutoLogoutMinutes)
		assert.Empty(t, settings.LeadEmail)

		var rows int64
		require.NoError(t, service.DB.Model(&models.Settings{}).Count(&rows).Error)
		assert.Equal(t, int64(1), rows)
		assert.Equal(t, []string{"SETTINGS_UPDATED", "SETTINGS_UPDATED"}, activityLogger.Messages)
	})
}
