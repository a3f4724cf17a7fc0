package public

import (
	"errors"

	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
)

// GetImageCaptcha 获取图片验证码挑战
// 返回挑战 ID 与 base64 图片，提交申请时带回识别结果
func (h *Handler) GetImageCaptcha(c *gin.Context) {
	if h.CaptchaService == nil {
		respondError(c, response.CodeInternal, "captcha is unavailable", service.ErrCaptchaConfigInvalid)
		return
	}

	challenge, err := h.CaptchaService.GenerateImageChallenge()
	if errors.Is(err, service.ErrCaptchaConfigInvalid) {
		respondError(c, response.CodeBadRequest, "captcha is unavailable", nil)
		return
	}
	if err != nil {
		respondError(c, response.CodeInternal, "generate captcha failed", err)
		return
	}

	response.Success(c, gin.H{
		"captcha_id":   challenge.CaptchaID,
		"image_base64": challenge.ImageBase64,
	})
}
