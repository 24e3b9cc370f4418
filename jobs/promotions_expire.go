package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-commerce/storefront/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PromoExpirer is satisfied by promotions.Service.
type PromoExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// PromotionsExpireJob flips overdue ACTIVE codes to EXPIRED and reprices carts.
type PromotionsExpireJob struct {
	Promotions PromoExpirer
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewPromotionsExpireJob wires dependencies for the expiry handler.
func NewPromotionsExpireJob(promotions PromoExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *PromotionsExpireJob {
	return &PromotionsExpireJob{Promotions: promotions, Logger: logger, Metrics: metrics}
}

// Handle processes promotions:expire tasks.
func (j *PromotionsExpireJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Promotions == nil {
		return errors.New("promotions expire: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskPromotionsExpire)
	defer func() {
		err = tracker.End(err)
	}()

	logger := jobLogger(j.Logger, TaskPromotionsExpire)
	count, err := j.Promotions.ExpireDue(ctx)
	if err != nil {
		logger.Error("expire promo codes", slog.Any("error", err))
		return err
	}
	metrics.AddAffected(TaskPromotionsExpire, int64(count))
	logger.Info("promo expiry complete", slog.Int("expired", count))
	return nil
}

func jobLogger(logger *slog.Logger, task string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", task))
}
