package service

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"
)

const (
	affiliateCommissionRateMin  = 0
	affiliateCommissionRateMax  = 100
	affiliateNotifyEmailsMax    = 20
	affiliateWebhookURLMaxRunes = 500
)

// AffiliateSetting 推广计划设置
// settings 表中的运行时配置，覆盖启动配置里的同名默认值
type AffiliateSetting struct {
	DefaultCommissionRate float64  `json:"default_commission_rate"`
	CouponDiscountType    string   `json:"coupon_discount_type"`
	CouponDiscountAmount  float64  `json:"coupon_discount_amount"`
	AutoGenerateCoupon    bool     `json:"auto_generate_coupon"`
	NotifyEmails          []string `json:"notify_emails"`
	WebhookURL            string   `json:"webhook_url"`
}

// AffiliateDefaultSetting 由启动配置生成默认推广计划设置
func AffiliateDefaultSetting(cfg config.AffiliateConfig) AffiliateSetting {
	return NormalizeAffiliateSetting(AffiliateSetting{
		DefaultCommissionRate: cfg.DefaultCommissionRate,
		CouponDiscountType:    cfg.CouponDiscountType,
		CouponDiscountAmount:  cfg.CouponDiscountAmount,
		AutoGenerateCoupon:    cfg.AutoGenerateCoupon,
		NotifyEmails:          []string{},
	})
}

func roundAffiliateDecimal(value float64) float64 {
	return math.Round(value*100) / 100
}

// clampAffiliateRate 佣金率取两位小数并夹在 [0, 100]
func clampAffiliateRate(rate float64) float64 {
	rate = roundAffiliateDecimal(rate)
	if rate < affiliateCommissionRateMin {
		return affiliateCommissionRateMin
	}
	if rate > affiliateCommissionRateMax {
		return affiliateCommissionRateMax
	}
	return rate
}

func normalizeCouponDiscountType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case constants.CouponDiscountTypePercent,
		constants.CouponDiscountTypeFixedCart,
		constants.CouponDiscountTypeFixedProduct:
		return value
	}
	return constants.CouponDiscountTypePercent
}

// NormalizeAffiliateSetting 归一化推广计划设置
func NormalizeAffiliateSetting(setting AffiliateSetting) AffiliateSetting {
	setting.DefaultCommissionRate = clampAffiliateRate(setting.DefaultCommissionRate)
	setting.CouponDiscountType = normalizeCouponDiscountType(setting.CouponDiscountType)
	if setting.CouponDiscountAmount = roundAffiliateDecimal(setting.CouponDiscountAmount); setting.CouponDiscountAmount < 0 {
		setting.CouponDiscountAmount = 0
	}
	setting.NotifyEmails = normalizeAffiliateNotifyEmails(setting.NotifyEmails)
	setting.WebhookURL = normalizeSettingTextWithRuneLimit(setting.WebhookURL, affiliateWebhookURLMaxRunes)
	return setting
}

// ValidateAffiliateSetting 校验推广计划设置
func ValidateAffiliateSetting(setting AffiliateSetting) error {
	normalized := NormalizeAffiliateSetting(setting)
	if normalized.DefaultCommissionRate < affiliateCommissionRateMin || normalized.DefaultCommissionRate > affiliateCommissionRateMax {
		return fmt.Errorf("%w: commission rate must be between 0 and 100", ErrAffiliateConfigInvalid)
	}
	if normalized.CouponDiscountAmount <= 0 {
		return fmt.Errorf("%w: coupon discount amount must be positive", ErrAffiliateConfigInvalid)
	}
	if normalized.CouponDiscountType == constants.CouponDiscountTypePercent && normalized.CouponDiscountAmount > 100 {
		return fmt.Errorf("%w: percent discount cannot exceed 100", ErrAffiliateConfigInvalid)
	}
	for _, email := range normalized.NotifyEmails {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: notify email %q is invalid", ErrAffiliateConfigInvalid, email)
		}
	}
	if normalized.WebhookURL != "" {
		parsed, err := url.Parse(normalized.WebhookURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("%w: webhook url must be a valid http(s) address", ErrAffiliateConfigInvalid)
		}
	}
	return nil
}

// AffiliateSettingToMap 将推广计划设置转换为 settings 存储结构
func AffiliateSettingToMap(setting AffiliateSetting) map[string]interface{} {
	normalized := NormalizeAffiliateSetting(setting)
	return map[string]interface{}{
		"default_commission_rate": normalized.DefaultCommissionRate,
		"coupon_discount_type":    normalized.CouponDiscountType,
		"coupon_discount_amount":  normalized.CouponDiscountAmount,
		"auto_generate_coupon":    normalized.AutoGenerateCoupon,
		"notify_emails":           cloneStringSlice(normalized.NotifyEmails),
		"webhook_url":             normalized.WebhookURL,
	}
}

// affiliateSettingFromJSON 从 settings 行还原设置，缺失或坏掉的字段保留 fallback 值
func affiliateSettingFromJSON(row models.JSON, fallback AffiliateSetting) AffiliateSetting {
	next := fallback

	readFloat := func(key string, dst *float64) {
		value, ok := row[key]
		if !ok {
			return
		}
		if parsed, err := parseSettingFloat(value); err == nil {
			*dst = parsed
		}
	}
	readFloat("default_commission_rate", &next.DefaultCommissionRate)
	readFloat("coupon_discount_amount", &next.CouponDiscountAmount)

	if value, ok := row["coupon_discount_type"]; ok {
		next.CouponDiscountType = normalizeSettingText(value)
	}
	if value, ok := row["auto_generate_coupon"]; ok {
		next.AutoGenerateCoupon = parseSettingBool(value)
	}
	if value, ok := row["notify_emails"]; ok {
		next.NotifyEmails = normalizeSettingStringList(value)
	}
	if value, ok := row["webhook_url"]; ok {
		next.WebhookURL = normalizeSettingText(value)
	}

	return NormalizeAffiliateSetting(next)
}

func normalizeAffiliateSettingMap(value map[string]interface{}) models.JSON {
	setting := affiliateSettingFromJSON(models.JSON(value), AffiliateDefaultSetting(config.AffiliateConfig{}))
	return models.JSON(AffiliateSettingToMap(setting))
}

// GetAffiliateSetting 获取推广计划设置（优先 settings，空时回退启动配置）
func (s *SettingService) GetAffiliateSetting(defaultCfg config.AffiliateConfig) (AffiliateSetting, error) {
	fallback := AffiliateDefaultSetting(defaultCfg)
	if s == nil {
		return fallback, nil
	}
	stored, err := s.GetByKey(constants.SettingKeyAffiliateConfig)
	if err != nil || stored == nil {
		return fallback, err
	}
	return affiliateSettingFromJSON(stored, fallback), nil
}

// UpdateAffiliateSetting 更新推广计划设置
func (s *SettingService) UpdateAffiliateSetting(setting AffiliateSetting) (AffiliateSetting, error) {
	normalized := NormalizeAffiliateSetting(setting)
	if err := ValidateAffiliateSetting(normalized); err != nil {
		return AffiliateSetting{}, err
	}
	if _, err := s.Update(constants.SettingKeyAffiliateConfig, AffiliateSettingToMap(normalized)); err != nil {
		return AffiliateSetting{}, err
	}
	return normalized, nil
}

// parseSettingFloat 兼容 settings 行里数字的各种历史存法
func parseSettingFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		return v.Float64()
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("blank numeric setting")
		}
		return strconv.ParseFloat(trimmed, 64)
	}
	switch rv := reflect.ValueOf(value); rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("numeric setting has type %T", value)
}

// normalizeAffiliateNotifyEmails 去重小写并限制数量，保序
func normalizeAffiliateNotifyEmails(emails []string) []string {
	result := make([]string, 0, len(emails))
	seen := make(map[string]struct{}, len(emails))
	for _, raw := range emails {
		if len(result) == affiliateNotifyEmailsMax {
			break
		}
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		result = append(result, email)
	}
	return result
}

func normalizeSettingStringList(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		if direct, isStrings := raw.([]string); isStrings {
			return append([]string(nil), direct...)
		}
		return nil
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		values = append(values, normalizeSettingText(item))
	}
	return values
}

func cloneStringSlice(items []string) []string {
	result := make([]string, len(items))
	copy(result, items)
	return result
}
