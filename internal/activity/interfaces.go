package activity

import "github.com/rentdesk/rentdesk/internal/models"

// IActivityLogger stores and queries the back-office history.
type IActivityLogger interface {
	Send(message models.Activity) error
	Search(searchCriteria map[string][]string) ([]map[string]any, error)
	CountByDay(searchCriteria map[string][]string, days int) ([]models.TimeSeriesPoint, error)
	Close() error
}
