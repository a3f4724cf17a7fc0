package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/queue"
)

func TestIsNotificationEventSupported(t *testing.T) {
	tests := []struct {
		event string
		want  bool
	}{
		{event: constants.NotifyEventNewApplication, want: true},
		{event: constants.NotifyEventApproved, want: true},
		{event: constants.NotifyEventPayment, want: true},
		{event: constants.NotifyEventMonthlySummary, want: true},
		{event: "  Approved  ", want: true},
		{event: "order_shipped", want: false},
		{event: "", want: false},
	}

	for _, tt := range tests {
		if got := isNotificationEventSupported(tt.event); got != tt.want {
			t.Fatalf("isNotificationEventSupported(%q) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestBuildNotificationContent(t *testing.T) {
	tests := []struct {
		name                string
		eventType           string
		data                map[string]interface{}
		wantSubjectContains []string
		wantBodyContains    []string
	}{
		{
			name:      "new_application",
			eventType: constants.NotifyEventNewApplication,
			data: map[string]interface{}{
				"affiliate_id": "AFF-007",
				"name":         "Maya Rodriguez",
				"email":        "maya@example.com",
				"company":      "Slope Fitness Studio",
			},
			wantSubjectContains: []string{
				"New affiliate application",
				"Maya Rodriguez",
			},
			wantBodyContains: []string{
				"waiting for review",
				"Affiliate ID: AFF-007",
				"Company: Slope Fitness Studio",
			},
		},
		{
			name:      "approved",
			eventType: constants.NotifyEventApproved,
			data: map[string]interface{}{
				"name":            "Maya Rodriguez",
				"coupon_code":     "PS-MR25",
				"referral_link":   "https://parkslope.example.com/?ref=AFF-007",
				"commission_rate": "10.00",
			},
			wantSubjectContains: []string{
				"approved",
			},
			wantBodyContains: []string{
				"Hi Maya Rodriguez",
				"Coupon code: PS-MR25",
				"Commission rate: 10.00%",
			},
		},
		{
			name:      "payment",
			eventType: constants.NotifyEventPayment,
			data: map[string]interface{}{
				"name":               "Maya Rodriguez",
				"amount":             "42.50",
				"coupon_code":        "PS-MR25",
				"commission_pending": "12.00",
			},
			wantSubjectContains: []string{
				"Commission payment recorded",
			},
			wantBodyContains: []string{
				"Amount: 42.50",
				"Outstanding balance: 12.00",
			},
		},
		{
			name:      "monthly_summary",
			eventType: constants.NotifyEventMonthlySummary,
			data: map[string]interface{}{
				"name":             "Maya Rodriguez",
				"affiliate_id":     "AFF-007",
				"month":            "2025-06",
				"order_count":      7,
				"total_sales":      "500.00",
				"total_commission": "50.00",
			},
			wantSubjectContains: []string{
				"monthly summary",
				"2025-06",
			},
			wantBodyContains: []string{
				"(AFF-007)",
				"Orders: 7",
				"Total sales: 500.00",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := buildNotificationContent(tt.eventType, queue.NotificationDispatchPayload{
				EventType: tt.eventType,
				Data:      tt.data,
			})
			for _, expected := range tt.wantSubjectContains {
				if !strings.Contains(subject, expected) {
					t.Fatalf("subject missing %q: %s", expected, subject)
				}
			}
			for _, expected := range tt.wantBodyContains {
				if !strings.Contains(body, expected) {
					t.Fatalf("body missing %q: %s", expected, body)
				}
			}
		})
	}
}

func TestNotificationRecipients(t *testing.T) {
	setting := AffiliateSetting{NotifyEmails: []string{"partners@example.com", "ops@example.com"}}

	toAffiliate := notificationRecipients(constants.NotifyEventApproved, setting, queue.NotificationDispatchPayload{
		Data: map[string]interface{}{"email": "maya@example.com"},
	})
	if len(toAffiliate) != 1 || toAffiliate[0] != "maya@example.com" {
		t.Fatalf("expected approved event to target affiliate, got %v", toAffiliate)
	}

	toOps := notificationRecipients(constants.NotifyEventNewApplication, setting, queue.NotificationDispatchPayload{
		Data: map[string]interface{}{"email": "maya@example.com"},
	})
	if len(toOps) != 2 || toOps[0] != "partners@example.com" {
		t.Fatalf("expected new application to target notify emails, got %v", toOps)
	}

	missing := notificationRecipients(constants.NotifyEventPayment, setting, queue.NotificationDispatchPayload{})
	if len(missing) != 0 {
		t.Fatalf("expected no recipients without affiliate email, got %v", missing)
	}
}

func TestBuildNotificationDedupeKey(t *testing.T) {
	payload := queue.NotificationDispatchPayload{
		EventType:   constants.NotifyEventPayment,
		AffiliateID: "AFF-007",
		Data:        map[string]interface{}{"amount": "42.50", "coupon_code": "PS-MR25"},
	}

	first := buildNotificationDedupeKey(payload)
	second := buildNotificationDedupeKey(payload)
	if first != second {
		t.Fatalf("expected stable dedupe key, got %q and %q", first, second)
	}
	if !strings.HasPrefix(first, "notification:dedupe:") {
		t.Fatalf("unexpected dedupe key prefix: %q", first)
	}

	changed := buildNotificationDedupeKey(queue.NotificationDispatchPayload{
		EventType:   constants.NotifyEventPayment,
		AffiliateID: "AFF-007",
		Data:        map[string]interface{}{"amount": "43.00", "coupon_code": "PS-MR25"},
	})
	if changed == first {
		t.Fatalf("expected different payload to yield different key")
	}
}

func TestDispatchRejectsUnsupportedEvent(t *testing.T) {
	svc := NewNotificationService(NewSettingService(newMockSettingRepo()), nil, nil, config.AffiliateConfig{})

	err := svc.Dispatch(context.Background(), queue.NotificationDispatchPayload{EventType: "order_shipped"})
	if !errors.Is(err, ErrNotificationEventInvalid) {
		t.Fatalf("expected ErrNotificationEventInvalid, got %v", err)
	}
}

func TestDispatchPostsWebhook(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode webhook payload failed: %v", err)
		}
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.UpdateAffiliateSetting(AffiliateSetting{
		DefaultCommissionRate: 10,
		CouponDiscountType:    constants.CouponDiscountTypePercent,
		CouponDiscountAmount:  15,
		WebhookURL:            server.URL,
	}); err != nil {
		t.Fatalf("init affiliate setting failed: %v", err)
	}

	svc := NewNotificationService(settingSvc, nil, nil, config.AffiliateConfig{})
	err := svc.Dispatch(context.Background(), queue.NotificationDispatchPayload{
		EventType:   constants.NotifyEventApproved,
		AffiliateID: "AFF-007",
		Data:        map[string]interface{}{"email": "maya@example.com", "coupon_code": "PS-MR25"},
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case payload := <-received:
		if payload["event"] != constants.NotifyEventApproved {
			t.Fatalf("expected event approved, got %v", payload["event"])
		}
		data, ok := payload["data"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected data object, got %T", payload["data"])
		}
		if data["affiliate_id"] != "AFF-007" || data["coupon_code"] != "PS-MR25" {
			t.Fatalf("unexpected webhook data: %v", data)
		}
		if payload["occurred_at"] == nil {
			t.Fatalf("expected occurred_at timestamp")
		}
	default:
		t.Fatalf("webhook was not called")
	}
}

func TestDispatchReportsWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	settingSvc := NewSettingService(newMockSettingRepo())
	if _, err := settingSvc.UpdateAffiliateSetting(AffiliateSetting{
		DefaultCommissionRate: 10,
		CouponDiscountType:    constants.CouponDiscountTypePercent,
		CouponDiscountAmount:  15,
		WebhookURL:            server.URL,
	}); err != nil {
		t.Fatalf("init affiliate setting failed: %v", err)
	}

	svc := NewNotificationService(settingSvc, nil, nil, config.AffiliateConfig{})
	err := svc.Dispatch(context.Background(), queue.NotificationDispatchPayload{
		EventType:   constants.NotifyEventPayment,
		AffiliateID: "AFF-007",
		Data:        map[string]interface{}{"email": "maya@example.com"},
	})
	if !errors.Is(err, ErrNotificationSendFailed) {
		t.Fatalf("expected ErrNotificationSendFailed, got %v", err)
	}
}

func TestSendTestValidation(t *testing.T) {
	svc := NewNotificationService(NewSettingService(newMockSettingRepo()), nil, nil, config.AffiliateConfig{})

	if err := svc.SendTest(context.Background(), NotificationTestSendInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty input, got %v", err)
	}
	if err := svc.SendTest(context.Background(), NotificationTestSendInput{Channel: "email"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing target, got %v", err)
	}
	if err := svc.SendTest(context.Background(), NotificationTestSendInput{Channel: "carrier-pigeon", Target: "roof"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unsupported channel, got %v", err)
	}
}

func TestSendTestWebhook(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	svc := NewNotificationService(NewSettingService(newMockSettingRepo()), nil, nil, config.AffiliateConfig{})
	if err := svc.SendTest(context.Background(), NotificationTestSendInput{Channel: "webhook", Target: server.URL}); err != nil {
		t.Fatalf("send test webhook failed: %v", err)
	}

	select {
	case body := <-received:
		if !strings.Contains(body, `"event":"test"`) {
			t.Fatalf("expected test event payload, got %s", body)
		}
	default:
		t.Fatalf("webhook was not called")
	}
}

func TestWebhookSendEventRejectsEmptyURL(t *testing.T) {
	sender := NewWebhookNotifyService()
	if err := sender.SendEvent(context.Background(), "   ", "test", nil); !errors.Is(err, ErrNotificationSendFailed) {
		t.Fatalf("expected ErrNotificationSendFailed, got %v", err)
	}
}
