package core

import (
	"github.com/rentdesk/rentdesk/internal/models"
	"github.com/rentdesk/rentdesk/internal/notifier"

	"go.uber.org/zap"
)

func NewNotifier(config models.NotifierConfiguration) notifier.INotifier {
	var notify notifier.INotifier
	var err error

	switch config.Type {
	case "smtp":
		notify, err = notifier.NewSMTPNotifier(*config.SMTP)
	case "filesystem":
		notify, err = notifier.NewFilesystemNotifier(*config.Filesystem)
	default:
		return nil
	}

	if err != nil {
		zap.L().Fatal("Failed to initialize notifier", zap.String("type", config.Type), zap.Error(err))
	}
	return notify
}
