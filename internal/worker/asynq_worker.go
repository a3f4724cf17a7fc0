package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/provider"
	"github.com/astrocyte/PSOLOMON/internal/queue"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 队列任务处理端，直接取用容器内已装配的服务
type Consumer struct {
	*provider.Container
}

// NewConsumer 包装容器为消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{Container: c}
}

// Register 注册各任务类型的处理函数
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skipped", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskNotificationDispatch, c.handleNotificationDispatch)
	mux.HandleFunc(queue.TaskMonthlySummary, c.handleMonthlySummary)
}

func (c *Consumer) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_notification_dispatch_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.NotificationDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_notification_dispatch_unmarshal_failed", "error", err)
		return err
	}
	if c.NotificationService == nil {
		logger.Warnw("worker_notification_dispatch_skip_service_nil", "event_type", payload.EventType)
		return nil
	}
	if err := c.NotificationService.Dispatch(ctx, payload); err != nil {
		if errors.Is(err, service.ErrNotificationEventInvalid) {
			// 未知事件类型重试也不会成功，直接丢弃
			logger.Debugw("worker_notification_dispatch_skip_invalid_event", "event_type", payload.EventType)
			return nil
		}
		logger.Warnw("worker_notification_dispatch_failed",
			"event_type", payload.EventType,
			"affiliate_id", payload.AffiliateID,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleMonthlySummary(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_monthly_summary_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.MonthlySummaryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_monthly_summary_unmarshal_failed", "error", err)
		return err
	}
	month := strings.TrimSpace(payload.Month)
	if month == "" {
		logger.Debugw("worker_monthly_summary_skip_empty_month")
		return nil
	}
	if c.CommissionService == nil {
		logger.Warnw("worker_monthly_summary_skip_service_nil", "month", month)
		return nil
	}
	published, err := c.CommissionService.PublishMonthlySummary(ctx, month)
	if err != nil {
		logger.Warnw("worker_monthly_summary_failed", "month", month, "error", err)
		return err
	}
	logger.Infow("worker_monthly_summary_published", "month", month, "affiliates", published)
	return nil
}
