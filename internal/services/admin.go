package services

import (
	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/handlers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AdminService struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

func (s AdminService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.ValidateQuery[models.AdminStatsQueryParams]).
		Get("/stats", handlers.GetOneWithQueryHandler(s.GetStats))

	return r
}

func (s AdminService) GetStats(
	logger *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	queryParams models.AdminStatsQueryParams,
) (models.AdminStatsResponse, error) {
	var response models.AdminStatsResponse

	s.DB.Model(&models.User{}).Count(&response.TotalUsers)

	s.DB.Model(&models.TwoFactorCredential{}).
		Where("verified = ?", true).
		Count(&response.TwoFactorUsers)

	s.DB.Model(&models.Vehicle{}).Count(&response.TotalVehicles)

	s.DB.Model(&models.Vehicle{}).
		Where("published = ?", true).
		Count(&response.PublishedVehicles)

	s.DB.Model(&models.Promo{}).
		Where("active = ?", true).
		Count(&response.ActivePromos)

	s.DB.Model(&models.InfoRequest{}).
		Where("status = ?", models.InfoRequestStatusNew).
		Count(&response.OpenRequests)

	days := queryParams.Days
	if days == 0 {
		days = defaultActivityDays
	}

	response.RequestsByDay = []models.TimeSeriesPoint{}
	if s.ActivityLogger != nil {
		points, err := s.ActivityLogger.CountByDay(map[string][]string{
			"action": {activity.InfoRequestCreated},
		}, days)
		if err != nil {
			logger.Warn("Failed to count requests by day", zap.Error(err))
		} else {
			response.RequestsByDay = points
		}
	}

	return response, nil
}
