package services

import (
	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/handlers"
	m "github.com/rentdesk/rentdesk/internal/middlewares"
	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const defaultActivityDays = 30

// ActivityService reads the back-office history.
type ActivityService struct {
	ActivityLogger activity.IActivityLogger
}

func (s ActivityService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.ActivityQueryParams]).
		Get("/", handlers.GetListWithQueryHandler(s.GetActivityList))
	r.With(m.ValidateQuery[models.ActivityQueryParams]).
		Get("/daily", handlers.GetListWithQueryHandler(s.GetDailyActivity))
	return r
}

func (s ActivityService) GetActivityList(
	_ *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	query models.ActivityQueryParams,
) ([]map[string]any, error) {
	return s.ActivityLogger.Search(activityCriteria(query))
}

func (s ActivityService) GetDailyActivity(
	_ *zap.Logger,
	_ models.UserClaims,
	_ []uint,
	query models.ActivityQueryParams,
) ([]models.TimeSeriesPoint, error) {
	days := query.Days
	if days == 0 {
		days = defaultActivityDays
	}
	return s.ActivityLogger.CountByDay(activityCriteria(query), days)
}

func activityCriteria(query models.ActivityQueryParams) map[string][]string {
	criteria := map[string][]string{}
	if query.Action != "" {
		criteria["action"] = []string{query.Action}
	}
	if query.ObjectType != "" {
		criteria["object_type"] = []string{query.ObjectType}
	}
	if query.UserID != "" {
		criteria["user_id"] = []string{query.UserID}
	}
	return criteria
}
