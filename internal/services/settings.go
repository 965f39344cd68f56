package services

import (
	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/handlers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/sql"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SettingsService struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

// PublicRoutes exposes what clients need before login, such as the idle timeout.
func (s SettingsService) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/public", handlers.GetOneHandler(s.GetPublicSettings))
	return r
}

func (s SettingsService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", handlers.GetOneHandler(s.GetSettings))
	r.With(m.Validate[models.SettingsBody]).
		Put("/", handlers.UpdateHandler(s.UpdateSettings))
	return r
}

func (s SettingsService) GetPublicSettings(_ *zap.Logger, _ models.UserClaims, _ []uint) (models.PublicSettings, error) {
	settings, err := sql.GetSettings(s.DB)
	if err != nil {
		return models.PublicSettings{}, err
	}
	return models.PublicSettings{SiteName: settings.SiteName, AutoLogoutMinutes: settings.AutoLogoutMinutes}, nil
}

func (s SettingsService) GetSettings(_ *zap.Logger, _ models.UserClaims, _ []uint) (models.Settings, error) {
	return sql.GetSettings(s.DB)
}

func (s SettingsService) UpdateSettings(
	logger *zap.Logger,
	claims models.UserClaims,
	_ []uint,
	body models.SettingsBody,
) (models.Settings, error) {
	settings, err := sql.GetSettings(s.DB)
	if err != nil {
		return models.Settings{}, err
	}

	// Select keeps zero values such as a disabled auto-logout.
	err = s.DB.Model(&settings).
		Select("site_name", "auto_logout_minutes", "lead_email").
		Updates(models.Settings{
			SiteName:          body.SiteName,
			AutoLogoutMinutes: body.AutoLogoutMinutes,
			LeadEmail:         body.LeadEmail,
		}).Error
	if err != nil {
		return models.Settings{}, err
	}

	logActivity(logger, s.ActivityLogger, models.Activity{
		Message: activity.SettingsUpdated,
		Object:  body,
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.SettingsUpdated,
			"user_id":     idString(claims.UserID),
			"object_type": "settings",
		}),
	})

	return sql.GetSettings(s.DB)
}
