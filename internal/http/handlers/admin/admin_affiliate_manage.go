package admin

import (
	"strconv"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/repository"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func affiliateIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, response.CodeBadRequest, "affiliate id is required", nil)
		return "", false
	}
	return id, true
}

// ListAffiliates 推广伙伴列表（状态过滤 + 关键词检索）
func (h *Handler) ListAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rows, total, err := h.AffiliateService.List(repository.AffiliateListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "fetch affiliates failed", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// CountAffiliates 按状态统计推广伙伴数量
func (h *Handler) CountAffiliates(c *gin.Context) {
	counts, err := h.AffiliateService.CountByStatus()
	if err != nil {
		respondError(c, response.CodeInternal, "count affiliates failed", err)
		return
	}
	response.Success(c, counts)
}

// GetAffiliate 推广伙伴详情
func (h *Handler) GetAffiliate(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	affiliate, err := h.AffiliateService.Get(id)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}
	response.Success(c, affiliate)
}

// CreateAffiliate 后台手工录入推广申请
func (h *Handler) CreateAffiliate(c *gin.Context) {
	var req service.AffiliateApplyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	affiliate, err := h.AffiliateService.Create(c.Request.Context(), req)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_created",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", affiliate.AffiliateID,
	)
	response.Success(c, affiliate)
}

// ApproveAffiliate 批准申请并分配专属优惠码
func (h *Handler) ApproveAffiliate(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	affiliate, err := h.AffiliateService.Approve(c.Request.Context(), id, currentUsername(c))
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_approved",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", affiliate.AffiliateID,
		"coupon_code", affiliate.CouponCode,
	)
	response.Success(c, affiliate)
}

// RejectAffiliate 驳回申请
func (h *Handler) RejectAffiliate(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	affiliate, err := h.AffiliateService.Reject(c.Request.Context(), id)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_rejected",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", affiliate.AffiliateID,
	)
	response.Success(c, affiliate)
}

// DeactivateAffiliate 停用伙伴并同步停用网关优惠码
func (h *Handler) DeactivateAffiliate(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	affiliate, err := h.AffiliateService.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_deactivated",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", affiliate.AffiliateID,
	)
	response.Success(c, affiliate)
}

// ReactivateAffiliate 恢复停用的伙伴并重新启用优惠码
func (h *Handler) ReactivateAffiliate(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	affiliate, err := h.AffiliateService.Reactivate(c.Request.Context(), id)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_reactivated",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", affiliate.AffiliateID,
	)
	response.Success(c, affiliate)
}

// DeleteAffiliate 删除伙伴（连带删除网关优惠码，打款流水独立保留）
func (h *Handler) DeleteAffiliate(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	if err := h.AffiliateService.Delete(c.Request.Context(), id); err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_deleted",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", id,
	)
	response.Success(c, nil)
}

// UpdateCommissionRateRequest 调整佣金比例请求
type UpdateCommissionRateRequest struct {
	Rate *float64 `json:"rate" binding:"required"`
}

// UpdateAffiliateCommissionRate 调整伙伴佣金比例
func (h *Handler) UpdateAffiliateCommissionRate(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	var req UpdateCommissionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	affiliate, err := h.AffiliateService.UpdateCommissionRate(id, decimal.NewFromFloat(*req.Rate))
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_commission_rate_updated",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", affiliate.AffiliateID,
		"rate", affiliate.CommissionRate,
	)
	response.Success(c, affiliate)
}

// UpdateCouponDiscountRequest 调整优惠码折扣请求
type UpdateCouponDiscountRequest struct {
	DiscountType string   `json:"discount_type" binding:"required"`
	Amount       *float64 `json:"amount" binding:"required"`
}

// UpdateAffiliateCouponDiscount 调整伙伴优惠码的折扣类型与力度
func (h *Handler) UpdateAffiliateCouponDiscount(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	var req UpdateCouponDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	affiliate, err := h.AffiliateService.UpdateCouponDiscount(
		c.Request.Context(), id, req.DiscountType, decimal.NewFromFloat(*req.Amount))
	if err != nil {
		respondAffiliateError(c, err)
		return
	}

	requestLog(c).Infow("admin_affiliate_coupon_discount_updated",
		"operator_admin_id", currentAdminID(c),
		"affiliate_id", affiliate.AffiliateID,
		"discount_type", req.DiscountType,
	)
	response.Success(c, affiliate)
}

// UpdateAffiliateProfile 更新伙伴联系资料（仅更新请求中出现的字段）
func (h *Handler) UpdateAffiliateProfile(c *gin.Context) {
	id, ok := affiliateIDParam(c)
	if !ok {
		return
	}

	var patch service.AffiliateProfilePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	affiliate, err := h.AffiliateService.UpdateProfile(id, patch)
	if err != nil {
		respondAffiliateError(c, err)
		return
	}
	response.Success(c, affiliate)
}
