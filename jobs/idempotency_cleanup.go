package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-commerce/storefront/internal/jobs"
)

// KeyPruner is satisfied by shared.IdempotencyStore.
type KeyPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// IdempotencyCleanupJob deletes webhook event ids older than the retention window.
type IdempotencyCleanupJob struct {
	Store   KeyPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob wires dependencies for the cleanup handler.
func NewIdempotencyCleanupJob(store KeyPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Metrics: metrics}
}

// Handle processes maintenance:idempotency-cleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyCleanup)
	defer func() {
		err = tracker.End(err)
	}()

	retention := payload.Retention()
	logger := jobLogger(j.Logger, TaskIdempotencyCleanup).With(slog.Duration("retention", retention))
	removed, err := j.Store.Prune(ctx, retention)
	if err != nil {
		logger.Error("prune idempotency keys", slog.Any("error", err))
		return err
	}
	metrics.AddAffected(TaskIdempotencyCleanup, removed)
	logger.Info("idempotency cleanup complete", slog.Int64("removed", removed))
	return nil
}
