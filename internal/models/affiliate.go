package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Affiliate 推广伙伴档案
// 删除为硬删除（档案移除后不可恢复），佣金支付记录单独保留
type Affiliate struct {
	ID             uint            `gorm:"primarykey" json:"id"`                                       // 主键
	AffiliateID    string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"affiliate_id"`  // 对外编号（AFF-NNN）
	FirstName      string          `gorm:"type:varchar(64);not null" json:"first_name"`                // 名
	LastName       string          `gorm:"type:varchar(64);not null" json:"last_name"`                 // 姓
	Email          string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`        // 邮箱（唯一，区分大小写精确匹配）
	Phone          string          `gorm:"type:varchar(32);not null" json:"phone"`                     // 电话
	Company        string          `gorm:"type:varchar(128)" json:"company,omitempty"`                 // 公司（可选）
	ReferralSource string          `gorm:"type:varchar(128)" json:"referral_source,omitempty"`         // 来源渠道（可选）
	Motivation     string          `gorm:"type:text" json:"motivation,omitempty"`                      // 申请动机（可选）
	ReferralLink   string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"referral_link"` // 推广链接（创建时派生，不可变）
	CouponCode     *string         `gorm:"type:varchar(64);uniqueIndex" json:"coupon_code"`            // 优惠券码（审核通过后一次性写入）
	Status         string          `gorm:"type:varchar(20);not null;index" json:"status"`              // 状态
	CommissionRate decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate"`          // 佣金比例（百分比，0-100）
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`                           // 内部备注
	ApprovedAt     *time.Time      `json:"approved_at"`                                                // 审核通过时间
	ApprovedBy     string          `gorm:"type:varchar(64)" json:"approved_by,omitempty"`              // 审核人
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt      time.Time       `json:"updated_at"`                                                 // 更新时间
}

// TableName 指定表名
func (Affiliate) TableName() string {
	return "affiliates"
}

// HasCoupon 判断是否已分配优惠券
func (a *Affiliate) HasCoupon() bool {
	return a != nil && a.CouponCode != nil && *a.CouponCode != ""
}

// CouponCodeValue 返回优惠券码（未分配时为空串）
func (a *Affiliate) CouponCodeValue() string {
	if a == nil || a.CouponCode == nil {
		return ""
	}
	return *a.CouponCode
}
