package models

import (
	"time"
)

type WorkerRunStatus string

const (
	WorkerRunStatusRunning   WorkerRunStatus = "running"
	WorkerRunStatusCompleted WorkerRunStatus = "completed"
	WorkerRunStatusFailed    WorkerRunStatus = "failed"
)

// WorkerRun records one cycle of a periodic worker.
type WorkerRun struct {
	ID         uint            `gorm:"primarykey"                              json:"id"`
	WorkerName string          `gorm:"type:varchar(64);not null;index"         json:"workerName"`
	Status     WorkerRunStatus `gorm:"type:varchar(16);not null;default:'running'" json:"status"`
	Processed  int             `gorm:"not null;default:0"                      json:"processed"`
	StartedAt  time.Time       `gorm:"not null"                                json:"startedAt"`
	EndedAt    *time.Time      `                                               json:"endedAt,omitempty"`
}
