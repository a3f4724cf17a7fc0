package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 推广设置
	affiliateConfig := map[string]interface{}{
		constants.SettingFieldDefaultCommissionRate: 10.0,
		constants.SettingFieldCouponDiscountType:    constants.CouponDiscountTypePercent,
		constants.SettingFieldCouponDiscountAmount:  15.0,
		constants.SettingFieldAutoGenerateCoupon:    true,
		constants.SettingFieldNotifyEmails:          []string{"partners@example.com"},
		constants.SettingFieldWebhookURL:            "",
	}

	var setting models.Setting
	if err := models.DB.Where("key = ?", constants.SettingKeyAffiliateConfig).First(&setting).Error; err != nil {
		setting = models.Setting{
			Key:       constants.SettingKeyAffiliateConfig,
			ValueJSON: models.JSON(affiliateConfig),
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to create affiliate config: %v", err)
		} else {
			stdLog.Println("Created affiliate config")
		}
	} else {
		setting.ValueJSON = models.JSON(affiliateConfig)
		if err := models.DB.Save(&setting).Error; err != nil {
			stdLog.Printf("Failed to update affiliate config: %v", err)
		} else {
			stdLog.Println("Updated affiliate config")
		}
	}

	// 演示推广伙伴，覆盖完整生命周期各状态
	now := time.Now()
	approvedAt1 := now.AddDate(0, -3, 0)
	approvedAt2 := now.AddDate(0, -2, 0)
	approvedAt3 := now.AddDate(0, -4, 0)
	coupon1 := "PS-MR25"
	coupon2 := "NYC-DC25"
	coupon3 := "PS-LW25"

	affiliates := []models.Affiliate{
		{
			AffiliateID:    "AFF-001",
			FirstName:      "Maya",
			LastName:       "Rodriguez",
			Email:          "maya.rodriguez@example.com",
			Phone:          "+1-718-555-0140",
			Company:        "Slope Fitness Studio",
			ReferralSource: "instagram",
			Motivation:     "I run a neighborhood fitness studio and my members keep asking where to order from.",
			ReferralLink:   buildReferralLink(cfg.Affiliate.SiteBaseURL, "AFF-001"),
			CouponCode:     &coupon1,
			Status:         constants.AffiliateStatusApproved,
			CommissionRate: decimal.NewFromInt(10),
			ApprovedAt:     &approvedAt1,
			ApprovedBy:     "admin",
		},
		{
			AffiliateID:    "AFF-002",
			FirstName:      "Dana",
			LastName:       "Chen",
			Email:          "dana.chen@example.com",
			Phone:          "+1-347-555-0188",
			Company:        "",
			ReferralSource: "friend",
			Motivation:     "Food blogger covering Brooklyn delivery spots.",
			ReferralLink:   buildReferralLink(cfg.Affiliate.SiteBaseURL, "AFF-002"),
			CouponCode:     &coupon2,
			Status:         constants.AffiliateStatusApproved,
			CommissionRate: decimal.NewFromFloat(12.5),
			ApprovedAt:     &approvedAt2,
			ApprovedBy:     "admin",
		},
		{
			AffiliateID:    "AFF-003",
			FirstName:      "Omar",
			LastName:       "Haddad",
			Email:          "omar.haddad@example.com",
			Phone:          "+1-929-555-0105",
			Company:        "Haddad Catering",
			ReferralSource: "search",
			Motivation:     "We cater office lunches and want to refer overflow orders.",
			ReferralLink:   buildReferralLink(cfg.Affiliate.SiteBaseURL, "AFF-003"),
			Status:         constants.AffiliateStatusPending,
			CommissionRate: decimal.NewFromInt(10),
		},
		{
			AffiliateID:    "AFF-004",
			FirstName:      "Petra",
			LastName:       "Novak",
			Email:          "petra.novak@example.com",
			Phone:          "+1-646-555-0177",
			ReferralSource: "other",
			Motivation:     "Looking for passive income.",
			ReferralLink:   buildReferralLink(cfg.Affiliate.SiteBaseURL, "AFF-004"),
			Status:         constants.AffiliateStatusRejected,
			CommissionRate: decimal.NewFromInt(10),
			Notes:          "No audience overlap, application declined.",
		},
		{
			AffiliateID:    "AFF-005",
			FirstName:      "Liam",
			LastName:       "Walsh",
			Email:          "liam.walsh@example.com",
			Phone:          "+1-718-555-0153",
			Company:        "Walsh Media",
			ReferralSource: "newsletter",
			Motivation:     "Local newsletter with 8k subscribers.",
			ReferralLink:   buildReferralLink(cfg.Affiliate.SiteBaseURL, "AFF-005"),
			CouponCode:     &coupon3,
			Status:         constants.AffiliateStatusInactive,
			CommissionRate: decimal.NewFromInt(10),
			ApprovedAt:     &approvedAt3,
			ApprovedBy:     "admin",
			Notes:          "Paused while the newsletter is on summer break.",
		},
	}

	for _, affiliate := range affiliates {
		var existing models.Affiliate
		if err := models.DB.Where("email = ?", affiliate.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&affiliate).Error; err != nil {
				stdLog.Printf("Failed to create affiliate %s: %v", affiliate.AffiliateID, err)
			} else {
				stdLog.Printf("Created affiliate: %s (%s)", affiliate.AffiliateID, affiliate.Status)
			}
		} else {
			stdLog.Printf("Affiliate already exists: %s", existing.AffiliateID)
		}
	}

	// 佣金支付流水，只在该伙伴名下还没有流水时写入
	paymentPlans := []struct {
		AffiliateID string
		CouponCode  string
		Payments    []models.PaymentRecord
	}{
		{
			AffiliateID: "AFF-001",
			CouponCode:  coupon1,
			Payments: []models.PaymentRecord{
				{
					Amount: models.NewMoneyFromDecimal(decimal.NewFromFloat(42.50)),
					Status: constants.PaymentRecordStatusPaid,
					PaidAt: now.AddDate(0, -2, 0),
					PaidBy: "admin",
					Notes:  "April payout",
				},
				{
					Amount: models.NewMoneyFromDecimal(decimal.NewFromFloat(61.20)),
					Status: constants.PaymentRecordStatusPaid,
					PaidAt: now.AddDate(0, -1, 0),
					PaidBy: "admin",
					Notes:  "May payout",
				},
			},
		},
		{
			AffiliateID: "AFF-002",
			CouponCode:  coupon2,
			Payments: []models.PaymentRecord{
				{
					Amount: models.NewMoneyFromDecimal(decimal.NewFromFloat(25.00)),
					Status: constants.PaymentRecordStatusPaid,
					PaidAt: now.AddDate(0, -1, -10),
					PaidBy: "admin",
					Notes:  "First payout",
				},
			},
		},
	}

	for _, plan := range paymentPlans {
		var count int64
		if err := models.DB.Model(&models.PaymentRecord{}).Where("affiliate_id = ?", plan.AffiliateID).Count(&count).Error; err != nil {
			stdLog.Printf("Failed to count payments for %s: %v", plan.AffiliateID, err)
			continue
		}
		if count > 0 {
			stdLog.Printf("Payments already exist for %s", plan.AffiliateID)
			continue
		}
		for _, payment := range plan.Payments {
			payment.AffiliateID = plan.AffiliateID
			payment.CouponCode = plan.CouponCode
			if err := models.DB.Create(&payment).Error; err != nil {
				stdLog.Printf("Failed to create payment for %s: %v", plan.AffiliateID, err)
			}
		}
		stdLog.Printf("Seeded %d payments for %s", len(plan.Payments), plan.AffiliateID)
	}

	fmt.Println("\n✅ Demo data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- Affiliate config (10% default rate, 15% percent coupon)")
	fmt.Println("- 5 Affiliates (2 approved, 1 pending, 1 rejected, 1 inactive)")
	fmt.Println("- 3 Payment records")
}

// buildReferralLink 与服务侧派生规则保持一致
func buildReferralLink(baseURL, affiliateID string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return fmt.Sprintf("%s/?ref=%s", base, affiliateID)
}
