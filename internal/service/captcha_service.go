package service

import (
	"strings"
	"sync"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/config"

	"github.com/mojocn/base64Captcha"
)

// captchaCharset 图片验证码字符集，数字加大小写字母
const captchaCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CaptchaVerifyPayload 验证码校验请求载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 图片验证码服务
// 生成 base64 图片挑战并在内存 store 中一次性校验
type CaptchaService struct {
	setting CaptchaSetting

	mu                  sync.Mutex
	imageStore          base64Captcha.Store
	imageStoreMaxStore  int
	imageStoreExpireSec int
}

// NewCaptchaService 创建验证码服务
func NewCaptchaService(cfg config.CaptchaConfig) *CaptchaService {
	return &CaptchaService{setting: CaptchaDefaultSetting(cfg)}
}

// Required 判断场景是否需要验证码
func (s *CaptchaService) Required(scene string) bool {
	return s != nil && s.setting.IsSceneEnabled(scene)
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s == nil || !s.setting.Enabled {
		return nil, ErrCaptchaConfigInvalid
	}

	captcha := base64Captcha.NewCaptcha(s.imageDriver(), s.ensureImageStore(s.setting))
	id, img, _, err := captcha.Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(img),
	}, nil
}

// Verify 按场景校验验证码
// 校验为一次性消费，验证过的挑战立即失效
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload) error {
	if s == nil || !s.setting.IsSceneEnabled(scene) {
		return nil
	}

	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.ensureImageStore(s.setting).Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func (s *CaptchaService) imageDriver() *base64Captcha.DriverString {
	return base64Captcha.NewDriverString(
		s.setting.Image.Height,
		s.setting.Image.Width,
		s.setting.Image.NoiseCount,
		s.setting.Image.ShowLine,
		s.setting.Image.Length,
		captchaCharset,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
}

// ensureImageStore 维护与当前容量/过期配置匹配的内存 store，配置变化时重建
func (s *CaptchaService) ensureImageStore(setting CaptchaSetting) base64Captcha.Store {
	maxStore, expireSec := setting.Image.MaxStore, setting.Image.ExpireSeconds

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.imageStore == nil || s.imageStoreMaxStore != maxStore || s.imageStoreExpireSec != expireSec {
		s.imageStore = base64Captcha.NewMemoryStore(maxStore, time.Duration(expireSec)*time.Second)
		s.imageStoreMaxStore = maxStore
		s.imageStoreExpireSec = expireSec
	}
	return s.imageStore
}
