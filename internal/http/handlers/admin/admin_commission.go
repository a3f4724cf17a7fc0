package admin

import (
	"strconv"

	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/models"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAffiliateStats 查询伙伴的佣金对账汇总（实时拉取网关订单）
func (h *Handler) GetAffiliateStats(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	stats, err := h.CommissionService.GetStatsByAffiliate(c.Request.Context(), id)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}
	response.Success(c, stats)
}

// GetCouponStats 按券码查询佣金对账汇总
// 未知券码返回全零统计，供外部报表按券码直查
func (h *Handler) GetCouponStats(c *gin.Context) {
	stats, err := h.CommissionService.GetStatsByCoupon(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondAffiliateError(c, err)
		return
	}
	response.Success(c, stats)
}

// GetAffiliateOrders 查询计佣订单明细
func (h *Handler) GetAffiliateOrders(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	entries, err := h.CommissionService.GetOrderBreakdown(c.Request.Context(), id)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}
	response.Success(c, entries)
}

// RecordPaymentRequest 登记佣金打款请求
// 金额沿用商城口径以字符串传递，避免浮点精度损失
type RecordPaymentRequest struct {
	Amount     string `json:"amount" binding:"required"`
	CouponCode string `json:"coupon_code"`
	Notes      string `json:"notes"`
}

// RecordAffiliatePayment 登记一笔佣金打款流水
func (h *Handler) RecordAffiliatePayment(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	amount, err := models.NewMoneyFromString(req.Amount)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid amount", err)
		return
	}

	record, err := h.CommissionService.RecordPayment(c.Request.Context(), service.RecordPaymentInput{
		AffiliateID: id,
		CouponCode:  req.CouponCode,
		Amount:      amount,
		PaidBy:      currentUsername(c),
		Notes:       req.Notes,
	})
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_payment_recorded",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", record.AffiliateID,
		"amount", record.Amount.String(),
	)
	response.Success(c, record)
}

// ListAffiliatePayments 查询伙伴佣金支付流水
func (h *Handler) ListAffiliatePayments(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	records, total, err := h.CommissionService.ListPayments(id, page, pageSize)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}
	response.SuccessWithPage(c, records, response.BuildPagination(page, pageSize, total))
}
