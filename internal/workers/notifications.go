package workers

import (
	"context"

	"github.com/rentdesk/rentdesk/internal/events"
	"github.com/rentdesk/rentdesk/internal/messaging"

	"go.uber.org/zap"
)

const NotificationsWorkerName = "notifications"

// NotificationsWorker executes the events published on the notifications topic until
// the subscription channel closes.
type NotificationsWorker struct {
	Subscriber messaging.ISubscriber
	Params     *events.EventParams
}

func (w *NotificationsWorker) Start(ctx context.Context) {
	if w.Subscriber == nil {
		zap.L().Error("Notifications worker has no subscriber")
		return
	}

	msgs, err := w.Subscriber.Subscribe(ctx)
	if err != nil {
		zap.L().Error("Failed to subscribe to notifications", zap.Error(err))
		return
	}

	zap.L().Info("Started worker", zap.String("worker", NotificationsWorkerName))
	events.HandleEvents(w.Params, msgs)
	zap.L().Info("Worker shutting down", zap.String("worker", NotificationsWorkerName))
}
