package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/commerce"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/models"
	"github.com/astrocyte/PSOLOMON/internal/repository"

	"github.com/shopspring/decimal"
)

// commissionableOrderStatuses 计入佣金口径的商城订单状态
var commissionableOrderStatuses = []string{
	constants.CommerceOrderStatusCompleted,
	constants.CommerceOrderStatusProcessing,
}

// CommissionStats 佣金统计
// 佣金按伙伴当前比例对全部历史销售额重算，比例调整会追溯既往
type CommissionStats struct {
	AffiliateID       string          `json:"affiliate_id,omitempty"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	OrderCount        int             `json:"order_count"`
	TotalSales        models.Money    `json:"total_sales"`
	TotalCommission   models.Money    `json:"total_commission"`
	CommissionPaid    models.Money    `json:"commission_paid"`
	CommissionPending models.Money    `json:"commission_pending"`
}

// CommissionOrderEntry 单笔订单的销售与佣金明细
type CommissionOrderEntry struct {
	OrderID    int64               `json:"order_id"`
	Number     string              `json:"number"`
	Status     string              `json:"status"`
	Date       time.Time           `json:"date"`
	Total      models.Money        `json:"total"`
	Commission models.Money        `json:"commission"`
	LineItems  []commerce.LineItem `json:"line_items"`
}

// RecordPaymentInput 登记佣金支付参数
type RecordPaymentInput struct {
	AffiliateID string       `json:"affiliate_id"`
	CouponCode  string       `json:"coupon_code"`
	Amount      models.Money `json:"amount"`
	PaidBy      string       `json:"paid_by"`
	Notes       string       `json:"notes"`
}

// CommissionService 佣金账本服务
// 销售侧数据以商城订单为准，支付侧数据以本地流水为准，两者对账得出欠额
type CommissionService struct {
	affiliates repository.AffiliateRepository
	payments   repository.PaymentRecordRepository
	gateway    commerce.Gateway
	notifier   *NotificationService

	now func() time.Time
}

// NewCommissionService 创建佣金账本服务
func NewCommissionService(
	affiliates repository.AffiliateRepository,
	payments repository.PaymentRecordRepository,
	gateway commerce.Gateway,
	notifier *NotificationService,
) *CommissionService {
	return &CommissionService{
		affiliates: affiliates,
		payments:   payments,
		gateway:    gateway,
		notifier:   notifier,
		now:        time.Now,
	}
}

// GetStatsByCoupon 按券码统计销售与佣金
// 未知券码返回全零统计而非报错，外部报表对账时不至于中断
func (s *CommissionService) GetStatsByCoupon(ctx context.Context, couponCode string) (*CommissionStats, error) {
	couponCode = strings.TrimSpace(couponCode)
	if couponCode == "" {
		return nil, fmt.Errorf("%w: coupon code is required", ErrValidation)
	}
	affiliate, err := s.affiliates.GetByCouponCode(couponCode)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return &CommissionStats{CouponCode: couponCode}, nil
	}
	return s.statsForAffiliate(ctx, affiliate)
}

// GetStatsByAffiliate 按对外编号统计销售与佣金
func (s *CommissionService) GetStatsByAffiliate(ctx context.Context, affiliateID string) (*CommissionStats, error) {
	affiliate, err := s.affiliates.GetByAffiliateID(strings.TrimSpace(affiliateID))
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return s.statsForAffiliate(ctx, affiliate)
}

func (s *CommissionService) statsForAffiliate(ctx context.Context, affiliate *models.Affiliate) (*CommissionStats, error) {
	stats := &CommissionStats{
		AffiliateID:    affiliate.AffiliateID,
		CouponCode:     affiliate.CouponCodeValue(),
		CommissionRate: affiliate.CommissionRate,
	}
	if !affiliate.HasCoupon() {
		return stats, nil
	}

	orders, err := s.queryCommissionableOrders(ctx, affiliate.CouponCodeValue())
	if err != nil {
		return nil, err
	}

	// 累加保留原始精度，佣金在乘完比例后才落到分
	totalSales := decimal.Zero
	for _, order := range orders {
		totalSales = totalSales.Add(order.Total.Decimal)
	}

	paid, err := s.payments.SumPaidByCouponCode(affiliate.CouponCodeValue())
	if err != nil {
		return nil, err
	}

	stats.OrderCount = len(orders)
	stats.TotalSales = models.NewMoneyFromDecimal(totalSales)
	stats.TotalCommission = models.NewMoneyFromDecimal(
		totalSales.Mul(affiliate.CommissionRate).Div(decimal.NewFromInt(100)),
	)
	stats.CommissionPaid = models.NewMoneyFromDecimal(paid)

	pending := stats.TotalCommission.Sub(stats.CommissionPaid)
	if pending.IsNegative() {
		// 超付时欠额钳制为 0
		pending = models.Money{}
	}
	stats.CommissionPending = pending
	return stats, nil
}

func (s *CommissionService) queryCommissionableOrders(ctx context.Context, couponCode string) ([]commerce.Order, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: commerce gateway not configured", ErrExternalService)
	}
	orders, err := s.gateway.QueryOrders(ctx, commissionableOrderStatuses, couponCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return orders, nil
}

// GetOrderBreakdown 逐单列出销售额与对应佣金
func (s *CommissionService) GetOrderBreakdown(ctx context.Context, affiliateID string) ([]CommissionOrderEntry, error) {
	affiliate, err := s.affiliates.GetByAffiliateID(strings.TrimSpace(affiliateID))
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if !affiliate.HasCoupon() {
		return []CommissionOrderEntry{}, nil
	}

	orders, err := s.queryCommissionableOrders(ctx, affiliate.CouponCodeValue())
	if err != nil {
		return nil, err
	}

	entries := make([]CommissionOrderEntry, 0, len(orders))
	for _, order := range orders {
		entries = append(entries, CommissionOrderEntry{
			OrderID:    order.ID,
			Number:     order.Number,
			Status:     order.Status,
			Date:       order.CreatedAt,
			Total:      order.Total,
			Commission: order.Total.ApplyRate(affiliate.CommissionRate),
			LineItems:  order.LineItems,
		})
	}
	return entries, nil
}

// RecordPayment 登记一笔佣金支付
// 流水只追加，金额快照与券码在写入时冗余固化
func (s *CommissionService) RecordPayment(ctx context.Context, input RecordPaymentInput) (*models.PaymentRecord, error) {
	input.AffiliateID = strings.TrimSpace(input.AffiliateID)
	input.CouponCode = strings.TrimSpace(input.CouponCode)
	input.PaidBy = strings.TrimSpace(input.PaidBy)
	input.Notes = strings.TrimSpace(input.Notes)

	if input.AffiliateID == "" {
		return nil, fmt.Errorf("%w: affiliate id is required", ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	affiliate, err := s.affiliates.GetByAffiliateID(input.AffiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if !affiliate.HasCoupon() {
		return nil, fmt.Errorf("%w: affiliate has no coupon to reconcile against", ErrValidation)
	}
	if input.CouponCode != "" && !strings.EqualFold(input.CouponCode, affiliate.CouponCodeValue()) {
		return nil, fmt.Errorf("%w: coupon code does not match affiliate", ErrValidation)
	}

	record := &models.PaymentRecord{
		AffiliateID: affiliate.AffiliateID,
		CouponCode:  affiliate.CouponCodeValue(),
		Amount:      input.Amount,
		Status:      constants.PaymentRecordStatusPaid,
		PaidAt:      s.now(),
		PaidBy:      input.PaidBy,
		Notes:       input.Notes,
	}
	if err := s.payments.Create(record); err != nil {
		return nil, err
	}

	data := models.JSON{
		"affiliate_id": affiliate.AffiliateID,
		"name":         affiliate.FirstName + " " + affiliate.LastName,
		"email":        affiliate.Email,
		"coupon_code":  record.CouponCode,
		"amount":       record.Amount.String(),
		"paid_by":      record.PaidBy,
	}
	if stats, statsErr := s.statsForAffiliate(ctx, affiliate); statsErr == nil {
		data["total_commission"] = stats.TotalCommission.String()
		data["commission_paid"] = stats.CommissionPaid.String()
		data["commission_pending"] = stats.CommissionPending.String()
	} else {
		logger.Warnw("commission_stats_refresh_failed",
			"affiliate_id", affiliate.AffiliateID,
			"error", statsErr,
		)
	}
	s.notifier.Publish(ctx, NotificationEvent{
		Kind:        constants.NotifyEventPayment,
		AffiliateID: affiliate.AffiliateID,
		Data:        data,
	})
	return record, nil
}

// ListPayments 查询推广伙伴的佣金支付流水
func (s *CommissionService) ListPayments(affiliateID string, page, pageSize int) ([]models.PaymentRecord, int64, error) {
	affiliate, err := s.affiliates.GetByAffiliateID(strings.TrimSpace(affiliateID))
	if err != nil {
		return nil, 0, err
	}
	if affiliate == nil {
		return nil, 0, ErrNotFound
	}
	return s.payments.ListByAffiliateID(affiliate.AffiliateID, page, pageSize)
}

// PublishMonthlySummary 为月度报表口径下的每个伙伴发布汇总通知
// 已停用伙伴仍有未结佣金，一并计入；单个伙伴统计失败只告警跳过
func (s *CommissionService) PublishMonthlySummary(ctx context.Context, month string) (int, error) {
	affiliates, err := s.affiliates.ListByStatuses([]string{
		constants.AffiliateStatusApproved,
		constants.AffiliateStatusInactive,
	})
	if err != nil {
		return 0, err
	}
	published := 0
	for i := range affiliates {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		affiliate := &affiliates[i]
		stats, err := s.statsForAffiliate(ctx, affiliate)
		if err != nil {
			logger.Warnw("commission_stats_failed",
				"affiliate_id", affiliate.AffiliateID,
				"error", err,
			)
			continue
		}
		s.notifier.Publish(ctx, NotificationEvent{
			Kind:        constants.NotifyEventMonthlySummary,
			AffiliateID: affiliate.AffiliateID,
			Data: models.JSON{
				"affiliate_id":       affiliate.AffiliateID,
				"name":               affiliate.FirstName + " " + affiliate.LastName,
				"email":              affiliate.Email,
				"month":              month,
				"status":             affiliate.Status,
				"coupon_code":        affiliate.CouponCodeValue(),
				"order_count":        stats.OrderCount,
				"total_sales":        stats.TotalSales.String(),
				"total_commission":   stats.TotalCommission.String(),
				"commission_paid":    stats.CommissionPaid.String(),
				"commission_pending": stats.CommissionPending.String(),
			},
		})
		published++
	}
	return published, nil
}
