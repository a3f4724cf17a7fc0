package service

import (
	"errors"
	"testing"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"
)

func TestGetAffiliateSettingFallback(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	setting, err := svc.GetAffiliateSetting(config.AffiliateConfig{
		DefaultCommissionRate: 10,
		CouponDiscountType:    "percent",
		CouponDiscountAmount:  15,
		AutoGenerateCoupon:    true,
	})
	if err != nil {
		t.Fatalf("get affiliate setting failed: %v", err)
	}
	if setting.DefaultCommissionRate != 10 {
		t.Fatalf("expected default commission rate 10, got %v", setting.DefaultCommissionRate)
	}
	if setting.CouponDiscountType != constants.CouponDiscountTypePercent {
		t.Fatalf("expected default discount type percent, got %q", setting.CouponDiscountType)
	}
	if setting.CouponDiscountAmount != 15 {
		t.Fatalf("expected default discount amount 15, got %v", setting.CouponDiscountAmount)
	}
	if !setting.AutoGenerateCoupon {
		t.Fatalf("expected auto generate coupon true")
	}
	if len(setting.NotifyEmails) != 0 {
		t.Fatalf("expected default notify emails empty, got %v", setting.NotifyEmails)
	}
	if setting.WebhookURL != "" {
		t.Fatalf("expected default webhook url empty, got %q", setting.WebhookURL)
	}
}

func TestGetAffiliateSettingPrefersStoredValue(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	repo.store[constants.SettingKeyAffiliateConfig] = models.JSON{
		"default_commission_rate": float64(12.5),
		"coupon_discount_type":    "fixed_cart",
		"notify_emails":           []interface{}{"Partners@Example.com"},
	}

	setting, err := svc.GetAffiliateSetting(config.AffiliateConfig{
		DefaultCommissionRate: 10,
		CouponDiscountType:    "percent",
		CouponDiscountAmount:  15,
		AutoGenerateCoupon:    true,
	})
	if err != nil {
		t.Fatalf("get affiliate setting failed: %v", err)
	}
	if setting.DefaultCommissionRate != 12.5 {
		t.Fatalf("expected stored commission rate 12.5, got %v", setting.DefaultCommissionRate)
	}
	if setting.CouponDiscountType != constants.CouponDiscountTypeFixedCart {
		t.Fatalf("expected stored discount type fixed_cart, got %q", setting.CouponDiscountType)
	}
	if setting.CouponDiscountAmount != 15 {
		t.Fatalf("expected missing field fall back to 15, got %v", setting.CouponDiscountAmount)
	}
	if len(setting.NotifyEmails) != 1 || setting.NotifyEmails[0] != "partners@example.com" {
		t.Fatalf("expected stored notify email lowercased, got %v", setting.NotifyEmails)
	}
}

func TestUpdateAffiliateSettingNormalize(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	setting, err := svc.UpdateAffiliateSetting(AffiliateSetting{
		DefaultCommissionRate: 123.456,
		CouponDiscountType:    "  PERCENT ",
		CouponDiscountAmount:  20,
		AutoGenerateCoupon:    true,
		NotifyEmails:          []string{"  Partners@Example.com ", "partners@example.com", "", "ops@example.com"},
		WebhookURL:            "  https://hooks.example.com/affiliate ",
	})
	if err != nil {
		t.Fatalf("update affiliate setting failed: %v", err)
	}
	if setting.DefaultCommissionRate != 100 {
		t.Fatalf("expected commission rate clamp to 100, got %v", setting.DefaultCommissionRate)
	}
	if setting.CouponDiscountType != constants.CouponDiscountTypePercent {
		t.Fatalf("expected discount type percent, got %q", setting.CouponDiscountType)
	}
	if len(setting.NotifyEmails) != 2 {
		t.Fatalf("expected 2 notify emails after dedupe, got %v", setting.NotifyEmails)
	}
	if setting.NotifyEmails[0] != "partners@example.com" || setting.NotifyEmails[1] != "ops@example.com" {
		t.Fatalf("unexpected notify emails: %v", setting.NotifyEmails)
	}
	if setting.WebhookURL != "https://hooks.example.com/affiliate" {
		t.Fatalf("expected webhook url trimmed, got %q", setting.WebhookURL)
	}

	saved, ok := repo.store[constants.SettingKeyAffiliateConfig]
	if !ok {
		t.Fatalf("expected affiliate setting saved")
	}
	if saved["default_commission_rate"] != 100.0 {
		t.Fatalf("expected saved commission rate 100, got %v", saved["default_commission_rate"])
	}
	if saved["coupon_discount_type"] != constants.CouponDiscountTypePercent {
		t.Fatalf("expected saved discount type percent, got %v", saved["coupon_discount_type"])
	}
}

func TestUpdateAffiliateSettingRejectsInvalid(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	tests := []struct {
		name    string
		setting AffiliateSetting
	}{
		{
			name: "discount amount zero",
			setting: AffiliateSetting{
				DefaultCommissionRate: 10,
				CouponDiscountType:    "percent",
				CouponDiscountAmount:  0,
			},
		},
		{
			name: "percent discount over 100",
			setting: AffiliateSetting{
				DefaultCommissionRate: 10,
				CouponDiscountType:    "percent",
				CouponDiscountAmount:  120,
			},
		},
		{
			name: "invalid notify email",
			setting: AffiliateSetting{
				DefaultCommissionRate: 10,
				CouponDiscountType:    "percent",
				CouponDiscountAmount:  15,
				NotifyEmails:          []string{"not-an-address"},
			},
		},
		{
			name: "invalid webhook url",
			setting: AffiliateSetting{
				DefaultCommissionRate: 10,
				CouponDiscountType:    "percent",
				CouponDiscountAmount:  15,
				WebhookURL:            "ftp://hooks.example.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateAffiliateSetting(tt.setting); !errors.Is(err, ErrAffiliateConfigInvalid) {
				t.Fatalf("expected ErrAffiliateConfigInvalid, got %v", err)
			}
		})
	}

	if _, ok := repo.store[constants.SettingKeyAffiliateConfig]; ok {
		t.Fatalf("expected no setting saved after validation failures")
	}
}

func TestNormalizeAffiliateSettingDefaults(t *testing.T) {
	setting := NormalizeAffiliateSetting(AffiliateSetting{
		DefaultCommissionRate: -5,
		CouponDiscountType:    "mystery",
		CouponDiscountAmount:  -3,
	})
	if setting.DefaultCommissionRate != 0 {
		t.Fatalf("expected negative rate clamp to 0, got %v", setting.DefaultCommissionRate)
	}
	if setting.CouponDiscountType != constants.CouponDiscountTypePercent {
		t.Fatalf("expected unknown discount type fall back to percent, got %q", setting.CouponDiscountType)
	}
	if setting.CouponDiscountAmount != 0 {
		t.Fatalf("expected negative amount clamp to 0, got %v", setting.CouponDiscountAmount)
	}
}
