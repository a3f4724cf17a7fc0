package service

import (
	"fmt"
	"unicode"

	"github.com/astrocyte/PSOLOMON/internal/config"
)

// passwordPolicyError 密码策略错误，errors.Is 匹配 ErrWeakPassword
type passwordPolicyError struct {
	message string
}

func (e passwordPolicyError) Error() string { return e.message }

func (e passwordPolicyError) Is(target error) bool { return target == ErrWeakPassword }

// charClass 密码字符类别
type charClass int

const (
	classUpper charClass = iota
	classLower
	classNumber
	classSpecial
)

// classifyPassword 统计密码中出现过的字符类别
func classifyPassword(password string) map[charClass]bool {
	seen := make(map[charClass]bool, 4)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			seen[classUpper] = true
		case unicode.IsLower(r):
			seen[classLower] = true
		case unicode.IsDigit(r):
			seen[classNumber] = true
		default:
			seen[classSpecial] = true
		}
	}
	return seen
}

// validatePassword 按配置的密码策略校验
// 策略全部关闭时任何密码都通过
func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if policy.MinLength <= 0 && !policy.RequireUpper && !policy.RequireLower &&
		!policy.RequireNumber && !policy.RequireSpecial {
		return nil
	}

	// 长度按 rune 计，多字节字符算一个
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return passwordPolicyError{message: fmt.Sprintf("password must be at least %d characters", policy.MinLength)}
	}

	seen := classifyPassword(password)
	checks := []struct {
		required bool
		class    charClass
		message  string
	}{
		{policy.RequireUpper, classUpper, "password must contain an uppercase letter"},
		{policy.RequireLower, classLower, "password must contain a lowercase letter"},
		{policy.RequireNumber, classNumber, "password must contain a number"},
		{policy.RequireSpecial, classSpecial, "password must contain a special character"},
	}
	for _, check := range checks {
		if check.required && !seen[check.class] {
			return passwordPolicyError{message: check.message}
		}
	}
	return nil
}
