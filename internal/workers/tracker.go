package workers

import (
	"context"
	"time"

	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkerTask is one named step of a worker cycle. Fn returns how many rows it processed.
type WorkerTask struct {
	Name string
	Fn   func(ctx context.Context) (int, error)
}

// RunTracker records every worker cycle in the worker_runs table. A nil tracker or a
// tracker without a database only logs.
type RunTracker struct {
	DB *gorm.DB
}

func (t *RunTracker) StartRun(workerName string) (*models.WorkerRun, error) {
	run := &models.WorkerRun{
		WorkerName: workerName,
		Status:     models.WorkerRunStatusRunning,
		StartedAt:  time.Now(),
	}

	if t == nil || t.DB == nil {
		return run, nil
	}

	if err := t.DB.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (t *RunTracker) CompleteRun(run *models.WorkerRun, processed int) {
	t.finishRun(run, models.WorkerRunStatusCompleted, processed)
}

func (t *RunTracker) FailRun(run *models.WorkerRun, processed int) {
	t.finishRun(run, models.WorkerRunStatusFailed, processed)
}

func (t *RunTracker) finishRun(run *models.WorkerRun, status models.WorkerRunStatus, processed int) {
	endedAt := time.Now()
	run.Status = status
	run.Processed = processed
	run.EndedAt = &endedAt

	if t == nil || t.DB == nil || run.ID == 0 {
		return
	}

	err := t.DB.Model(run).
		Select("status", "processed", "ended_at").
		Updates(run).Error
	if err != nil {
		zap.L().Error("Failed to record worker run",
			zap.String("worker", run.WorkerName),
			zap.Uint("run_id", run.ID),
			zap.Error(err))
	}
}

// executeTasks runs the tasks in order and reports the per-task counts. A failed task
// does not stop the next one.
func executeTasks(ctx context.Context, tasks []WorkerTask) ([]int, bool) {
	counts := make([]int, len(tasks))
	failed := false

	for i, task := range tasks {
		if ctx.Err() != nil {
			return counts, failed
		}

		count, taskErr := task.Fn(ctx)
		if taskErr != nil {
			zap.L().Error("Worker task failed",
				zap.String("task", task.Name),
				zap.Error(taskErr))
			failed = true
		}
		counts[i] = count
	}

	return counts, failed
}

// StartPeriodicWorker runs one cycle right away, then one per interval until ctx is done.
func StartPeriodicWorker(
	ctx context.Context,
	tracker *RunTracker,
	workerName string,
	interval time.Duration,
	tasks []WorkerTask,
) {
	zap.L().Info("Starting worker",
		zap.String("worker", workerName),
		zap.Duration("interval", interval))

	runWorkerCycle(ctx, tracker, workerName, tasks)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Worker shutting down", zap.String("worker", workerName))
			return
		case <-ticker.C:
			runWorkerCycle(ctx, tracker, workerName, tasks)
		}
	}
}

func runWorkerCycle(ctx context.Context, tracker *RunTracker, workerName string, tasks []WorkerTask) *models.WorkerRun {
	startTime := time.Now()

	run, err := tracker.StartRun(workerName)
	if err != nil {
		zap.L().Error("Failed to start worker run tracking", zap.String("worker", workerName), zap.Error(err))
		return nil
	}

	counts, failed := executeTasks(ctx, tasks)

	processed := 0
	fields := []zap.Field{zap.String("worker", workerName)}
	for i, task := range tasks {
		processed += counts[i]
		fields = append(fields, zap.Int(task.Name, counts[i]))
	}
	fields = append(fields, zap.Duration("duration", time.Since(startTime)))

	if failed {
		tracker.FailRun(run, processed)
		zap.L().Warn("Worker cycle finished with errors", fields...)
	} else {
		tracker.CompleteRun(run, processed)
		zap.L().Info("Worker cycle complete", fields...)
	}

	return run
}
