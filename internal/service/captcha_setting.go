package service

import (
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
)

// CaptchaImageSetting 图片验证码参数
type CaptchaImageSetting struct {
	Length        int `json:"length"`
	Width         int `json:"width"`
	Height        int `json:"height"`
	NoiseCount    int `json:"noise_count"`
	ShowLine      int `json:"show_line"`
	ExpireSeconds int `json:"expire_seconds"`
	MaxStore      int `json:"max_store"`
}

// CaptchaSetting 验证码配置实体
type CaptchaSetting struct {
	Enabled bool                `json:"enabled"`
	Image   CaptchaImageSetting `json:"image"`
}

// CaptchaDefaultSetting 根据静态配置生成验证码设置
func CaptchaDefaultSetting(cfg config.CaptchaConfig) CaptchaSetting {
	setting := CaptchaSetting{
		Enabled: cfg.Enabled,
		Image: CaptchaImageSetting{
			Length:        cfg.Image.Length,
			Width:         cfg.Image.Width,
			Height:        cfg.Image.Height,
			NoiseCount:    cfg.Image.NoiseCount,
			ShowLine:      cfg.Image.ShowLine,
			ExpireSeconds: cfg.Image.ExpireSeconds,
			MaxStore:      cfg.Image.MaxStore,
		},
	}
	return NormalizeCaptchaSetting(setting)
}

// NormalizeCaptchaSetting 归一化验证码配置并补齐边界
func NormalizeCaptchaSetting(setting CaptchaSetting) CaptchaSetting {
	img := &setting.Image
	img.Length = intInRangeOr(img.Length, 4, 8, 5)
	img.Width = intAtLeastOr(img.Width, 100, 240)
	img.Height = intAtLeastOr(img.Height, 40, 80)
	img.NoiseCount = intAtLeastOr(img.NoiseCount, 0, 2)
	img.ShowLine = intAtLeastOr(img.ShowLine, 0, 2)
	img.ExpireSeconds = intInRangeOr(img.ExpireSeconds, 30, 3600, 300)
	img.MaxStore = intAtLeastOr(img.MaxStore, 100, 10240)
	return setting
}

// intInRangeOr 值落在 [lo, hi] 内时保留，否则取 fallback
func intInRangeOr(value, lo, hi, fallback int) int {
	if value < lo || value > hi {
		return fallback
	}
	return value
}

// intAtLeastOr 值不小于 lo 时保留，否则取 fallback
func intAtLeastOr(value, lo, fallback int) int {
	if value < lo {
		return fallback
	}
	return value
}

// IsSceneEnabled 判断场景是否需要验证码
// 当前只有推广申请一个场景
func (s CaptchaSetting) IsSceneEnabled(scene string) bool {
	if !s.Enabled {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(scene), constants.CaptchaSceneAffiliateApply)
}
