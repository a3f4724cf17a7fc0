package service

import (
	"strings"
	"unicode/utf8"

	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"
)

// normalizeSettingValueByKey 入库前按设置键做归一化，未知键原样存储。
func normalizeSettingValueByKey(key string, value map[string]interface{}) models.JSON {
	if key == constants.SettingKeyAffiliateConfig {
		return normalizeAffiliateSettingMap(value)
	}
	return models.JSON(value)
}

func normalizeSettingText(raw interface{}) string {
	if text, ok := raw.(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

func normalizeSettingTextWithRuneLimit(raw interface{}, maxRuneCount int) string {
	text := normalizeSettingText(raw)
	if maxRuneCount <= 0 || utf8.RuneCountInString(text) <= maxRuneCount {
		return text
	}
	return string([]rune(text)[:maxRuneCount])
}

func parseSettingBool(raw interface{}) bool {
	switch value := raw.(type) {
	case bool:
		return value
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}
