package shared

import (
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/service"
)

// CaptchaPayloadRequest 验证码请求载荷。
// 未启用验证码的场景允许空载荷，是否必填由 service 层判定。
type CaptchaPayloadRequest struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// ToServicePayload 转换为 service 层验证码载荷。
func (r CaptchaPayloadRequest) ToServicePayload() service.CaptchaVerifyPayload {
	return service.CaptchaVerifyPayload{
		CaptchaID:   strings.TrimSpace(r.CaptchaID),
		CaptchaCode: strings.TrimSpace(r.CaptchaCode),
	}
}
