package service

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"
)

const defaultSMTPPort = 587

// SMTPSetting SMTP 配置实体
type SMTPSetting struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	UseTLS   bool   `json:"use_tls"`
	UseSSL   bool   `json:"use_ssl"`
}

// SMTPSettingPatch SMTP 配置补丁（支持部分更新）
type SMTPSettingPatch struct {
	Enabled  *bool   `json:"enabled"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	From     *string `json:"from"`
	FromName *string `json:"from_name"`
	UseTLS   *bool   `json:"use_tls"`
	UseSSL   *bool   `json:"use_ssl"`
}

// SMTPDefaultSetting 根据静态配置生成默认 SMTP 设置
func SMTPDefaultSetting(cfg config.EmailConfig) SMTPSetting {
	return NormalizeSMTPSetting(SMTPSetting{
		Enabled:  cfg.Enabled,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		FromName: cfg.FromName,
		UseTLS:   cfg.UseTLS,
		UseSSL:   cfg.UseSSL,
	})
}

func validSMTPPort(port int) bool {
	return port > 0 && port <= 65535
}

// NormalizeSMTPSetting 归一化 SMTP 配置并补齐默认值
func NormalizeSMTPSetting(setting SMTPSetting) SMTPSetting {
	for _, field := range []*string{
		&setting.Host, &setting.Username, &setting.Password, &setting.From, &setting.FromName,
	} {
		*field = strings.TrimSpace(*field)
	}
	if !validSMTPPort(setting.Port) {
		setting.Port = defaultSMTPPort
	}
	return setting
}

func smtpSettingError(msg string) error {
	return fmt.Errorf("%w: %s", ErrSMTPConfigInvalid, msg)
}

// ValidateSMTPSetting 校验 SMTP 配置合法性
// 端口与 TLS/SSL 冲突始终检查，主机与发件人仅在启用时要求
func ValidateSMTPSetting(setting SMTPSetting) error {
	if !validSMTPPort(setting.Port) {
		return smtpSettingError("smtp port must be between 1 and 65535")
	}
	if setting.UseTLS && setting.UseSSL {
		return smtpSettingError("tls and ssl cannot both be enabled")
	}
	if !setting.Enabled {
		return nil
	}
	if strings.TrimSpace(setting.Host) == "" {
		return smtpSettingError("smtp host is required")
	}
	from := strings.TrimSpace(setting.From)
	if from == "" {
		return smtpSettingError("from address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return smtpSettingError("from address is invalid")
	}
	return nil
}

// SMTPSettingToConfig 将 SMTP 设置转换为运行时配置
func SMTPSettingToConfig(setting SMTPSetting) config.EmailConfig {
	normalized := NormalizeSMTPSetting(setting)
	return config.EmailConfig{
		Enabled:  normalized.Enabled,
		Host:     normalized.Host,
		Port:     normalized.Port,
		Username: normalized.Username,
		Password: normalized.Password,
		From:     normalized.From,
		FromName: normalized.FromName,
		UseTLS:   normalized.UseTLS,
		UseSSL:   normalized.UseSSL,
	}
}

func smtpSettingFields(setting SMTPSetting) map[string]interface{} {
	return map[string]interface{}{
		"enabled":   setting.Enabled,
		"host":      setting.Host,
		"port":      setting.Port,
		"username":  setting.Username,
		"password":  setting.Password,
		"from":      setting.From,
		"from_name": setting.FromName,
		"use_tls":   setting.UseTLS,
		"use_ssl":   setting.UseSSL,
	}
}

// SMTPSettingToMap 将 SMTP 设置转换为 settings 表结构
func SMTPSettingToMap(setting SMTPSetting) map[string]interface{} {
	return smtpSettingFields(NormalizeSMTPSetting(setting))
}

// MaskSMTPSettingForAdmin 返回脱敏后的 SMTP 设置
func MaskSMTPSettingForAdmin(setting SMTPSetting) models.JSON {
	normalized := NormalizeSMTPSetting(setting)
	masked := models.JSON(smtpSettingFields(normalized))
	masked["password"] = ""
	masked["has_password"] = normalized.Password != ""
	return masked
}

// GetSMTPSetting 获取 SMTP 设置（优先 settings，空时回退默认配置）
func (s *SettingService) GetSMTPSetting(defaultCfg config.EmailConfig) (SMTPSetting, error) {
	fallback := SMTPDefaultSetting(defaultCfg)
	stored, err := s.GetByKey(constants.SettingKeySMTPConfig)
	if err != nil {
		return fallback, err
	}
	if stored == nil {
		return fallback, nil
	}
	return NormalizeSMTPSetting(decodeSMTPSetting(stored, fallback)), nil
}

// PatchSMTPSetting 基于补丁更新 SMTP 设置
// 密码补丁为空串时保留旧值，避免脱敏回显覆盖真实密码
func (s *SettingService) PatchSMTPSetting(defaultCfg config.EmailConfig, patch SMTPSettingPatch) (SMTPSetting, error) {
	current, err := s.GetSMTPSetting(defaultCfg)
	if err != nil {
		return SMTPSetting{}, err
	}

	next := current
	overrideBool(&next.Enabled, patch.Enabled)
	overrideString(&next.Host, patch.Host)
	overrideInt(&next.Port, patch.Port)
	overrideString(&next.Username, patch.Username)
	if patch.Password != nil {
		if password := strings.TrimSpace(*patch.Password); password != "" {
			next.Password = password
		}
	}
	overrideString(&next.From, patch.From)
	overrideString(&next.FromName, patch.FromName)
	overrideBool(&next.UseTLS, patch.UseTLS)
	overrideBool(&next.UseSSL, patch.UseSSL)

	normalized := NormalizeSMTPSetting(next)
	if err := ValidateSMTPSetting(normalized); err != nil {
		return SMTPSetting{}, err
	}
	if _, err := s.Update(constants.SettingKeySMTPConfig, SMTPSettingToMap(normalized)); err != nil {
		return SMTPSetting{}, err
	}
	return normalized, nil
}

// decodeSMTPSetting 从 settings 表的 JSON 行还原配置
// 存量行由 SMTPSettingToMap 写入，类型固定；无法解析的行整体回退默认值
func decodeSMTPSetting(raw models.JSON, fallback SMTPSetting) SMTPSetting {
	buf, err := json.Marshal(map[string]interface{}(raw))
	if err != nil {
		return fallback
	}
	next := fallback
	if err := json.Unmarshal(buf, &next); err != nil {
		return fallback
	}
	return next
}

func overrideString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func overrideBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func overrideInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
