package public

import (
	"errors"

	"github.com/astrocyte/PSOLOMON/internal/constants"
	handlershared "github.com/astrocyte/PSOLOMON/internal/http/handlers/shared"
	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
)

// AffiliateApplyRequest 推广入驻申请请求
type AffiliateApplyRequest struct {
	FirstName      string                              `json:"first_name" binding:"required"`
	LastName       string                              `json:"last_name" binding:"required"`
	Email          string                              `json:"email" binding:"required,email"`
	Phone          string                              `json:"phone"`
	Company        string                              `json:"company"`
	ReferralSource string                              `json:"referral_source"`
	Motivation     string                              `json:"motivation"`
	CaptchaPayload handlershared.CaptchaPayloadRequest `json:"captcha_payload"`
}

// ApplyAffiliate 提交推广入驻申请
// 验证码按场景开关校验，通过后申请进入 pending 等待后台审批
func (h *Handler) ApplyAffiliate(c *gin.Context) {
	var req AffiliateApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	if err := h.CaptchaService.Verify(constants.CaptchaSceneAffiliateApply, req.CaptchaPayload.ToServicePayload()); err != nil {
		switch {
		case errors.Is(err, service.ErrCaptchaRequired):
			respondError(c, response.CodeBadRequest, "captcha is required", nil)
		case errors.Is(err, service.ErrCaptchaInvalid):
			respondError(c, response.CodeBadRequest, "captcha verification failed", nil)
		default:
			respondError(c, response.CodeInternal, "captcha is unavailable", err)
		}
		return
	}

	affiliate, err := h.AffiliateService.Create(c.Request.Context(), service.AffiliateApplyInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Company:        req.Company,
		ReferralSource: req.ReferralSource,
		Motivation:     req.Motivation,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrDuplicateEmail):
			respondError(c, response.CodeConflict, "email already registered", nil)
		default:
			respondError(c, response.CodeInternal, "submit application failed", err)
		}
		return
	}

	requestLog(c).Infow("affiliate_application_received",
		"affiliate_id", affiliate.AffiliateID,
	)
	response.Success(c, gin.H{
		"affiliate_id": affiliate.AffiliateID,
		"status":       affiliate.Status,
	})
}
