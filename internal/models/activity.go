package models

type LogFilter struct {
	Fields    map[string]string `json:"fields"`
	Timestamp string            `json:"timestamp"`
}

type Activity struct {
	Message string    `json:"message"`
	Object  any       `json:"object"`
	Filter  LogFilter `json:"filter"`
}

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type ActivityQueryParams struct {
	Action     string `json:"action"     validate:"omitempty,max=64"`
	ObjectType string `json:"objectType" validate:"omitempty,max=32"`
	UserID     string `json:"userId"     validate:"omitempty,numeric"`
	Days       int    `json:"days"       validate:"omitempty,gte=1,lte=90"`
}
