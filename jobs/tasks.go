package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPromotionsExpire expires promo codes past their deadline.
	TaskPromotionsExpire = "promotions:expire"
	// TaskIdempotencyCleanup prunes processed webhook event ids.
	TaskIdempotencyCleanup = "maintenance:idempotency-cleanup"

	// DefaultIdempotencyRetention keeps event ids long enough to absorb provider retries.
	DefaultIdempotencyRetention = 30 * 24 * time.Hour
)

// IdempotencyCleanupPayload configures the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// Retention returns the window as a duration, falling back to the default.
func (p IdempotencyCleanupPayload) Retention() time.Duration {
	if p.RetentionHours <= 0 {
		return DefaultIdempotencyRetention
	}
	return time.Duration(p.RetentionHours) * time.Hour
}

// NewPromotionsExpireTask constructs the expiry task. It carries no payload.
func NewPromotionsExpireTask() *asynq.Task {
	return asynq.NewTask(TaskPromotionsExpire, nil)
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	payload := IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// NewTaskByName builds a task with its default payload, used for manual triggers.
func NewTaskByName(name string) (*asynq.Task, error) {
	switch name {
	case TaskPromotionsExpire:
		return NewPromotionsExpireTask(), nil
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(DefaultIdempotencyRetention)
	default:
		return nil, fmt.Errorf("jobs: unsupported task %q", name)
	}
}

// TaskNames lists every task the worker handles.
func TaskNames() []string {
	return []string{TaskPromotionsExpire, TaskIdempotencyCleanup}
}
