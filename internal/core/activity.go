package core

import (
	"github.com/rentdesk/rentdesk/internal/activity"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

func NewActivityLogger(config models.ActivityConfiguration) activity.IActivityLogger {
	switch config.Type {
	case "filesystem":
		client, err := activity.NewFilesystemClient(*config.Filesystem)
		if err != nil {
			zap.L().Fatal("Failed to open activity index",
				zap.String("directory", config.Filesystem.Directory),
				zap.Error(err))
		}
		return client
	default:
		return nil
	}
}
