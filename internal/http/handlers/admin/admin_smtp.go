package admin

import (
	"errors"

	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
)

// loadSMTPSetting 读取已保存的 SMTP 设置，失败时已写出响应
func (h *Handler) loadSMTPSetting(c *gin.Context) (service.SMTPSetting, bool) {
	setting, err := h.SettingService.GetSMTPSetting(h.Config.Email)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch smtp settings failed", err)
		return service.SMTPSetting{}, false
	}
	return setting, true
}

// GetSMTPSettings 查询 SMTP 设置（密码脱敏）
func (h *Handler) GetSMTPSettings(c *gin.Context) {
	if setting, ok := h.loadSMTPSetting(c); ok {
		response.Success(c, service.MaskSMTPSettingForAdmin(setting))
	}
}

// UpdateSMTPSettings 部分更新 SMTP 设置并热应用到运行中的邮件服务
func (h *Handler) UpdateSMTPSettings(c *gin.Context) {
	var patch service.SMTPSettingPatch
	if !bindJSON(c, &patch) {
		return
	}

	setting, err := h.SettingService.PatchSMTPSetting(h.Config.Email, patch)
	if errors.Is(err, service.ErrSMTPConfigInvalid) {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	if err != nil {
		respondError(c, response.CodeInternal, "update smtp settings failed", err)
		return
	}

	h.Config.Email = service.SMTPSettingToConfig(setting)
	h.EmailService.SetConfig(&h.Config.Email)

	requestLog(c).Infow("admin_smtp_settings_updated",
		"operator_admin_id", currentAdminID(c),
		"smtp_host", setting.Host,
		"smtp_enabled", setting.Enabled,
	)
	response.Success(c, service.MaskSMTPSettingForAdmin(setting))
}

// TestSMTPSettingsRequest SMTP 连通性测试请求
type TestSMTPSettingsRequest struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// smtpProbeFailureMsg 把投递失败翻译成面向管理员的提示，非请求侧问题返回空串
func smtpProbeFailureMsg(err error) string {
	switch {
	case errors.Is(err, service.ErrEmailServiceNotConfigured):
		return "smtp settings are incomplete"
	case errors.Is(err, service.ErrInvalidEmail):
		return "recipient email is invalid"
	case errors.Is(err, service.ErrEmailRecipientRejected):
		return "recipient was rejected by the smtp server"
	}
	return ""
}

// TestSMTPSettings 用当前保存的 SMTP 设置发送一封测试邮件
// 测试时强制视为启用，便于在开启开关前先验证连通性
func (h *Handler) TestSMTPSettings(c *gin.Context) {
	var req TestSMTPSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	setting, ok := h.loadSMTPSetting(c)
	if !ok {
		return
	}
	setting.Enabled = true

	probeCfg := service.SMTPSettingToConfig(setting)
	probe := service.NewEmailService(&probeCfg)
	if err := probe.SendCustomEmail(req.To, req.Subject, req.Body); err != nil {
		if msg := smtpProbeFailureMsg(err); msg != "" {
			respondError(c, response.CodeBadRequest, msg, nil)
		} else {
			respondError(c, response.CodeBadGateway, "smtp delivery failed", err)
		}
		return
	}

	requestLog(c).Infow("admin_smtp_test_sent",
		"operator_admin_id", currentAdminID(c),
		"to", req.To,
	)
	response.SuccessWithMsg(c, "test email sent", nil)
}
