package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/cache"
	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/models"
	"github.com/astrocyte/PSOLOMON/internal/queue"

	"github.com/hibiken/asynq"
)

const notificationDedupeTTL = 5 * time.Minute

// NotificationEvent 业务通知事件
type NotificationEvent struct {
	Kind        string
	AffiliateID string
	Force       bool
	Data        models.JSON
}

// NotificationTestSendInput 通知测试发送参数
type NotificationTestSendInput struct {
	Channel string `json:"channel"`
	Target  string `json:"target"`
}

// NotificationService 通知分发服务
// 事件优先入队异步分发，队列未启用时降级为同步发送
type NotificationService struct {
	settingService *SettingService
	emailService   *EmailService
	queueClient    *queue.Client
	webhookSender  *WebhookNotifyService
	defaults       config.AffiliateConfig
}

// NewNotificationService 创建通知分发服务
func NewNotificationService(
	settingService *SettingService,
	emailService *EmailService,
	queueClient *queue.Client,
	defaults config.AffiliateConfig,
) *NotificationService {
	return &NotificationService{
		settingService: settingService,
		emailService:   emailService,
		queueClient:    queueClient,
		webhookSender:  NewWebhookNotifyService(),
		defaults:       defaults,
	}
}

// Publish 发布通知事件
// 通知永远不阻塞业务流程，任何失败只记录日志
func (s *NotificationService) Publish(ctx context.Context, event NotificationEvent) {
	if s == nil {
		return
	}
	kind := strings.ToLower(strings.TrimSpace(event.Kind))
	if !isNotificationEventSupported(kind) {
		logger.Warnw("notification_event_unsupported",
			"event_type", event.Kind,
			"affiliate_id", event.AffiliateID,
		)
		return
	}

	payload := queue.NotificationDispatchPayload{
		EventType:   kind,
		AffiliateID: strings.TrimSpace(event.AffiliateID),
		Force:       event.Force,
		Data:        notificationJSONToMap(event.Data),
	}
	if s.queueClient.Enabled() {
		err := s.queueClient.EnqueueNotificationDispatch(payload, asynq.MaxRetry(5))
		if err == nil {
			return
		}
		logger.Warnw("notification_enqueue_failed",
			"event_type", kind,
			"affiliate_id", payload.AffiliateID,
			"error", err,
		)
	}
	if err := s.Dispatch(ctx, payload); err != nil {
		logger.Warnw("notification_dispatch_failed",
			"event_type", kind,
			"affiliate_id", payload.AffiliateID,
			"error", err,
		)
	}
}

// Dispatch 消费一条通知分发任务，由队列 worker 或降级路径调用
func (s *NotificationService) Dispatch(ctx context.Context, payload queue.NotificationDispatchPayload) error {
	if s == nil {
		return nil
	}
	eventType := strings.ToLower(strings.TrimSpace(payload.EventType))
	if !isNotificationEventSupported(eventType) {
		return ErrNotificationEventInvalid
	}

	setting, err := s.settingService.GetAffiliateSetting(s.defaults)
	if err != nil {
		return err
	}

	if !payload.Force {
		ok, err := acquireNotificationDedupe(ctx, payload)
		if err != nil {
			logger.Warnw("notification_dedupe_failed", "event_type", eventType, "error", err)
		}
		if err == nil && !ok {
			return nil
		}
	}

	subject, body := buildNotificationContent(eventType, payload)
	recipients := notificationRecipients(eventType, setting, payload)

	var firstErr error
	if s.emailService != nil {
		for _, recipient := range recipients {
			if err := s.emailService.SendCustomEmail(recipient, subject, body); err != nil {
				if errors.Is(err, ErrEmailServiceDisabled) || errors.Is(err, ErrEmailServiceNotConfigured) {
					// 邮件通道未启用不算失败，跳过剩余收件人
					break
				}
				logger.Warnw("notification_email_send_failed",
					"event_type", eventType,
					"affiliate_id", payload.AffiliateID,
					"recipient", recipient,
					"error", err,
				)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	if webhookURL := strings.TrimSpace(setting.WebhookURL); webhookURL != "" && s.webhookSender != nil {
		if err := s.webhookSender.SendEvent(ctx, webhookURL, eventType, buildWebhookEventData(payload)); err != nil {
			logger.Warnw("notification_webhook_send_failed",
				"event_type", eventType,
				"affiliate_id", payload.AffiliateID,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, firstErr)
	}
	return nil
}

// SendTest 测试发送通知
func (s *NotificationService) SendTest(ctx context.Context, input NotificationTestSendInput) error {
	if s == nil {
		return ErrNotificationSendFailed
	}
	channel := strings.ToLower(strings.TrimSpace(input.Channel))
	target := strings.TrimSpace(input.Target)
	if channel == "" || target == "" {
		return fmt.Errorf("%w: channel and target are required", ErrValidation)
	}

	switch channel {
	case "email":
		if s.emailService == nil {
			return ErrNotificationSendFailed
		}
		return s.emailService.SendCustomEmail(target,
			"Notification test",
			"This is a test notification from the affiliate program service.",
		)
	case "webhook":
		return s.webhookSender.SendEvent(ctx, target, "test", map[string]interface{}{
			"message": "test notification",
		})
	default:
		return fmt.Errorf("%w: unsupported channel %q", ErrValidation, channel)
	}
}

func isNotificationEventSupported(eventType string) bool {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case constants.NotifyEventNewApplication,
		constants.NotifyEventApproved,
		constants.NotifyEventPayment,
		constants.NotifyEventMonthlySummary:
		return true
	default:
		return false
	}
}

// notificationRecipients 按事件类型决定收件人
// 审批通过与佣金支付面向伙伴本人，其余事件面向运营通知邮箱
func notificationRecipients(eventType string, setting AffiliateSetting, payload queue.NotificationDispatchPayload) []string {
	switch eventType {
	case constants.NotifyEventApproved, constants.NotifyEventPayment:
		email := notificationDataString(payload.Data, "email")
		if email == "" {
			return nil
		}
		return []string{email}
	default:
		return setting.NotifyEmails
	}
}

func acquireNotificationDedupe(ctx context.Context, payload queue.NotificationDispatchPayload) (bool, error) {
	key := buildNotificationDedupeKey(payload)
	return cache.SetNX(ctx, key, "1", notificationDedupeTTL)
}

// buildNotificationDedupeKey 由事件签名生成去重键，数据键排序后参与散列保证稳定
func buildNotificationDedupeKey(payload queue.NotificationDispatchPayload) string {
	keys := make([]string, 0, len(payload.Data))
	for key := range payload.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+2)
	parts = append(parts,
		strings.ToLower(strings.TrimSpace(payload.EventType)),
		strings.ToLower(strings.TrimSpace(payload.AffiliateID)),
	)
	for _, key := range keys {
		parts = append(parts, key+"="+strings.TrimSpace(fmt.Sprintf("%v", payload.Data[key])))
	}

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "notification:dedupe:" + hex.EncodeToString(hash[:])
}

func buildNotificationContent(eventType string, payload queue.NotificationDispatchPayload) (string, string) {
	data := payload.Data
	name := notificationDataString(data, "name")
	affiliateID := notificationDataString(data, "affiliate_id")
	if affiliateID == "" {
		affiliateID = strings.TrimSpace(payload.AffiliateID)
	}

	switch eventType {
	case constants.NotifyEventNewApplication:
		subject := "New affiliate application: " + name
		var b strings.Builder
		b.WriteString("A new affiliate application is waiting for review.\n\n")
		writeNotificationLine(&b, "Affiliate ID", affiliateID)
		writeNotificationLine(&b, "Name", name)
		writeNotificationLine(&b, "Email", notificationDataString(data, "email"))
		writeNotificationLine(&b, "Phone", notificationDataString(data, "phone"))
		writeNotificationLine(&b, "Company", notificationDataString(data, "company"))
		writeNotificationLine(&b, "Referral source", notificationDataString(data, "referral_source"))
		writeNotificationLine(&b, "Motivation", notificationDataString(data, "motivation"))
		return subject, b.String()

	case constants.NotifyEventApproved:
		subject := "Your affiliate application has been approved"
		var b strings.Builder
		if name != "" {
			b.WriteString("Hi " + name + ",\n\n")
		}
		b.WriteString("Your affiliate application has been approved.\n\n")
		writeNotificationLine(&b, "Coupon code", notificationDataString(data, "coupon_code"))
		writeNotificationLine(&b, "Referral link", notificationDataString(data, "referral_link"))
		if rate := notificationDataString(data, "commission_rate"); rate != "" {
			writeNotificationLine(&b, "Commission rate", rate+"%")
		}
		b.WriteString("\nShare the coupon code or referral link with your audience to start earning commission.\n")
		return subject, b.String()

	case constants.NotifyEventPayment:
		subject := "Commission payment recorded"
		var b strings.Builder
		if name != "" {
			b.WriteString("Hi " + name + ",\n\n")
		}
		b.WriteString("A new commission payment has been recorded on your affiliate account.\n\n")
		writeNotificationLine(&b, "Amount", notificationDataString(data, "amount"))
		writeNotificationLine(&b, "Coupon code", notificationDataString(data, "coupon_code"))
		writeNotificationLine(&b, "Paid by", notificationDataString(data, "paid_by"))
		writeNotificationLine(&b, "Total commission", notificationDataString(data, "total_commission"))
		writeNotificationLine(&b, "Paid to date", notificationDataString(data, "commission_paid"))
		writeNotificationLine(&b, "Outstanding balance", notificationDataString(data, "commission_pending"))
		return subject, b.String()

	case constants.NotifyEventMonthlySummary:
		month := notificationDataString(data, "month")
		subject := strings.TrimSpace("Affiliate monthly summary " + month + ": " + name)
		var b strings.Builder
		b.WriteString("Monthly commission summary")
		if name != "" {
			b.WriteString(" for " + name)
		}
		if affiliateID != "" {
			b.WriteString(" (" + affiliateID + ")")
		}
		b.WriteString(".\n\n")
		writeNotificationLine(&b, "Month", month)
		writeNotificationLine(&b, "Status", notificationDataString(data, "status"))
		writeNotificationLine(&b, "Coupon code", notificationDataString(data, "coupon_code"))
		writeNotificationLine(&b, "Orders", notificationDataString(data, "order_count"))
		writeNotificationLine(&b, "Total sales", notificationDataString(data, "total_sales"))
		writeNotificationLine(&b, "Total commission", notificationDataString(data, "total_commission"))
		writeNotificationLine(&b, "Commission paid", notificationDataString(data, "commission_paid"))
		writeNotificationLine(&b, "Commission pending", notificationDataString(data, "commission_pending"))
		return subject, b.String()

	default:
		return "Notification", ""
	}
}

func writeNotificationLine(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func buildWebhookEventData(payload queue.NotificationDispatchPayload) map[string]interface{} {
	data := cloneNotificationVariables(payload.Data)
	if strings.TrimSpace(payload.AffiliateID) != "" {
		data["affiliate_id"] = payload.AffiliateID
	}
	return data
}

func notificationDataString(data map[string]interface{}, key string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}
	normalized := strings.TrimSpace(fmt.Sprintf("%v", value))
	if normalized == "<nil>" {
		return ""
	}
	return normalized
}

func notificationJSONToMap(data models.JSON) map[string]interface{} {
	return cloneNotificationVariables(data)
}

// cloneNotificationVariables 浅拷贝事件数据，输入为空时也返回可写的空 map
func cloneNotificationVariables(data map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(data))
	for key, value := range data {
		result[key] = value
	}
	return result
}
