package sql

import (
	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/models"

	"gorm.io/gorm"
)

// GetSettings loads the settings row, creating it with defaults on first access.
func GetSettings(db *gorm.DB) (models.Settings, error) {
	settings := models.Settings{ID: models.SettingsID}
	err := db.Where(models.Settings{ID: models.SettingsID}).
		Attrs(models.Settings{SiteName: configuration.AppName}).
		FirstOrCreate(&settings).Error
	return settings, err
}
