package worker

import (
	"context"
	"errors"

	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/provider"
	"github.com/dujiao-next/newsletter-tracker/internal/queue"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSubscriberDirectorySync, c.handleSubscriberDirectorySync)
}

func (c *Consumer) handleSubscriberDirectorySync(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_directory_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseSubscriberDirectorySyncPayload(task)
	if err != nil {
		logger.Warnw("worker_directory_sync_unmarshal_failed", "error", err)
		return err
	}
	if payload.Email == "" {
		logger.Debugw("worker_directory_sync_skip_invalid_payload", "subscriber_id", payload.SubscriberID)
		return nil
	}
	if c.SubscriberService == nil {
		logger.Warnw("worker_directory_sync_skip_service_nil", "subscriber_id", payload.SubscriberID)
		return nil
	}
	result, err := c.SubscriberService.SyncDirectoryStatus(ctx, payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDirectoryCustomerNotFound):
			logger.Debugw("worker_directory_sync_skip_customer_not_found", "subscriber_id", payload.SubscriberID)
			return nil
		case errors.Is(err, service.ErrValidation):
			logger.Debugw("worker_directory_sync_skip_invalid_email", "subscriber_id", payload.SubscriberID)
			return nil
		case errors.Is(err, service.ErrDirectoryUnavailable):
			logger.Warnw("worker_directory_sync_directory_unavailable", "subscriber_id", payload.SubscriberID, "error", err)
			return err
		default:
			logger.Warnw("worker_directory_sync_failed", "subscriber_id", payload.SubscriberID, "error", err)
			return err
		}
	}
	logger.Debugw("worker_directory_sync_done",
		"subscriber_id", payload.SubscriberID,
		"status", result.Status,
		"updated", result.Updated,
	)
	return nil
}
