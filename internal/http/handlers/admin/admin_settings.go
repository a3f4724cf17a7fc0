package admin

import (
	"errors"

	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAffiliateSettings 查询推广计划运行时设置
func (h *Handler) GetAffiliateSettings(c *gin.Context) {
	setting, err := h.SettingService.GetAffiliateSetting(h.Config.Affiliate)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch affiliate settings failed", err)
		return
	}
	response.Success(c, setting)
}

// UpdateAffiliateSettings 更新推广计划设置并使服务端缓存失效
func (h *Handler) UpdateAffiliateSettings(c *gin.Context) {
	var req service.AffiliateSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	setting, err := h.SettingService.UpdateAffiliateSetting(req)
	if err != nil {
		if errors.Is(err, service.ErrAffiliateConfigInvalid) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "update affiliate settings failed", err)
		return
	}
	h.AffiliateService.InvalidateSettingCache()

	requestLog(c).Infow("admin_affiliate_settings_updated",
		"operator_admin_id", currentAdminID(c),
		"default_commission_rate", setting.DefaultCommissionRate,
		"coupon_discount_type", setting.CouponDiscountType,
	)
	response.Success(c, setting)
}
