package constants

// 推广伙伴状态常量
const (
	AffiliateStatusPending  = "pending"
	AffiliateStatusApproved = "approved"
	AffiliateStatusRejected = "rejected"
	AffiliateStatusInactive = "inactive"
)

// 佣金支付记录状态常量
// 支付记录只有一种状态，写入后不再流转
const (
	PaymentRecordStatusPaid = "paid"
)

// 商城订单计入佣金的状态常量
const (
	CommerceOrderStatusCompleted  = "completed"
	CommerceOrderStatusProcessing = "processing"
)

// 优惠券折扣类型常量（与商城端一致）
const (
	CouponDiscountTypePercent      = "percent"
	CouponDiscountTypeFixedCart    = "fixed_cart"
	CouponDiscountTypeFixedProduct = "fixed_product"
)

// 通知事件类型常量
const (
	NotifyEventNewApplication = "admin_new_application"
	NotifyEventApproved       = "approved"
	NotifyEventPayment        = "payment"
	NotifyEventMonthlySummary = "monthly_summary"
)

// 设置键常量
const (
	SettingKeyAffiliateConfig = "affiliate_config"
	SettingKeySMTPConfig      = "smtp_config"
)

// 推广设置字段常量
const (
	SettingFieldDefaultCommissionRate = "default_commission_rate"
	SettingFieldCouponDiscountType    = "coupon_discount_type"
	SettingFieldCouponDiscountAmount  = "coupon_discount_amount"
	SettingFieldAutoGenerateCoupon    = "auto_generate_coupon"
	SettingFieldNotifyEmails          = "notify_emails"
	SettingFieldWebhookURL            = "webhook_url"
)

// 推广伙伴编号前缀
const (
	AffiliateIDPrefix = "AFF-"
)

// 验证码场景常量
const (
	CaptchaSceneAffiliateApply = "affiliate_apply"
)

// 队列与异步任务常量
const (
	QueueDefault             = "default"
	TaskNotificationDispatch = "notification:dispatch"
	TaskMonthlySummary       = "affiliate:monthly_summary"
)

// 缓存键前缀常量
const (
	CacheKeyCaptchaPrefix        = "captcha:"
	CacheKeyRateLimitPrefix      = "ratelimit:"
	CacheKeyMonthlySummaryPrefix = "affiliate:summary:"
)
