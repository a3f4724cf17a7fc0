package admin

import (
	"errors"

	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
)

// SendTestNotification 向指定通道发送测试通知
// channel 取 email 或 webhook，target 对应收件地址或回调 URL
func (h *Handler) SendTestNotification(c *gin.Context) {
	var req service.NotificationTestSendInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	if err := h.NotificationService.SendTest(c.Request.Context(), req); err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		case errors.Is(err, service.ErrEmailServiceDisabled):
			respondError(c, response.CodeBadRequest, "email channel is disabled", nil)
		case errors.Is(err, service.ErrEmailServiceNotConfigured):
			respondError(c, response.CodeBadRequest, "smtp settings are incomplete", nil)
		case errors.Is(err, service.ErrInvalidEmail):
			respondError(c, response.CodeBadRequest, "recipient email is invalid", nil)
		case errors.Is(err, service.ErrEmailRecipientRejected):
			respondError(c, response.CodeBadRequest, "recipient was rejected by the smtp server", nil)
		default:
			respondError(c, response.CodeBadGateway, "notification delivery failed", err)
		}
		return
	}

	requestLog(c).Infow("admin_notification_test_sent",
		"operator_admin_id", currentAdminID(c),
		"channel", req.Channel,
	)
	response.SuccessWithMsg(c, "test notification sent", nil)
}
