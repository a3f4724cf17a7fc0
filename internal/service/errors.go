package service

import "errors"

// 业务错误哨兵，handler 层通过 errors.Is 匹配并映射 HTTP 状态码
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrExternalService   = errors.New("commerce gateway request failed")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrAdminDisabled      = errors.New("admin account disabled")

	ErrAffiliateConfigInvalid = errors.New("affiliate setting invalid")
	ErrSMTPConfigInvalid      = errors.New("smtp setting invalid")

	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")

	ErrNotificationEventInvalid = errors.New("notification event not supported")
	ErrNotificationSendFailed   = errors.New("notification send failed")

	ErrCaptchaRequired      = errors.New("captcha required")
	ErrCaptchaInvalid       = errors.New("captcha invalid")
	ErrCaptchaConfigInvalid = errors.New("captcha config invalid")
)
