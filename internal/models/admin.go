package models

type AdminStatsQueryParams struct {
	Days int `json:"days" validate:"omitempty,gte=1,lte=90"`
}

// AdminStatsResponse feeds the back-office dashboard.
type AdminStatsResponse struct {
	TotalUsers        int64             `json:"totalUsers"`
	TwoFactorUsers    int64             `json:"twoFactorUsers"`
	TotalVehicles     int64             `json:"totalVehicles"`
	PublishedVehicles int64             `json:"publishedVehicles"`
	ActivePromos      int64             `json:"activePromos"`
	OpenRequests      int64             `json:"openRequests"`
	RequestsByDay     []TimeSeriesPoint `json:"requestsByDay"`
}
