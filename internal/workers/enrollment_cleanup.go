package workers

import (
	"context"
	"time"

	"github.com/rentdesk/rentdesk/internal/sql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const EnrollmentCleanupWorkerName = "enrollment_cleanup"

// EnrollmentCleanupWorker drops pending two-factor secrets that were never verified in
// time, then removes the credentials left empty.
type EnrollmentCleanupWorker struct {
	DB          *gorm.DB
	Tracker     *RunTracker
	RunInterval time.Duration

	now func() time.Time
}

func (w *EnrollmentCleanupWorker) Start(ctx context.Context) {
	StartPeriodicWorker(ctx, w.Tracker, EnrollmentCleanupWorkerName, w.RunInterval, w.tasks())
}

func (w *EnrollmentCleanupWorker) tasks() []WorkerTask {
	return []WorkerTask{
		{Name: "expired_enrollments", Fn: w.clearExpiredEnrollments},
		{Name: "empty_credentials", Fn: w.deleteEmptyCredentials},
	}
}

func (w *EnrollmentCleanupWorker) clearExpiredEnrollments(ctx context.Context) (int, error) {
	now := time.Now()
	if w.now != nil {
		now = w.now()
	}

	count, err := sql.ClearExpiredEnrollments(w.DB.WithContext(ctx), now)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		zap.L().Debug("Cleared expired enrollments", zap.Int("count", count))
	}
	return count, nil
}

// deleteEmptyCredentials only touches unverified rows, so an active secret is never lost.
func (w *EnrollmentCleanupWorker) deleteEmptyCredentials(ctx context.Context) (int, error) {
	count, err := sql.DeleteEmptyCredentials(w.DB.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	if count > 0 {
		zap.L().Debug("Deleted empty two-factor credentials", zap.Int("count", count))
	}
	return count, nil
}
