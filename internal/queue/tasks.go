package queue

import (
	"encoding/json"

	"github.com/astrocyte/PSOLOMON/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch 通知分发任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
	// TaskMonthlySummary 月度佣金汇总任务
	TaskMonthlySummary = constants.TaskMonthlySummary
)

// NotificationDispatchPayload 通知分发任务载荷
type NotificationDispatchPayload struct {
	EventType   string                 `json:"event_type"`
	AffiliateID string                 `json:"affiliate_id"`
	Force       bool                   `json:"force"`
	Data        map[string]interface{} `json:"data"`
}

// MonthlySummaryPayload 月度佣金汇总任务载荷
// Month 形如 2025-08
type MonthlySummaryPayload struct {
	Month string `json:"month"`
}

// NewNotificationDispatchTask 创建通知分发任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}

// NewMonthlySummaryTask 创建月度佣金汇总任务
func NewMonthlySummaryTask(payload MonthlySummaryPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMonthlySummary, body), nil
}
