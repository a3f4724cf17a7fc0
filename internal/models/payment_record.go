package models

import "time"

// PaymentRecord 佣金支付流水
// 只追加不修改：财务审计记录，推广伙伴删除后依旧保留
type PaymentRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`                               // 主键
	AffiliateID string    `gorm:"type:varchar(32);not null;index" json:"affiliate_id"` // 推广伙伴编号
	CouponCode  string    `gorm:"type:varchar(64);not null;index" json:"coupon_code"`  // 支付时冗余记录的优惠券码
	Amount      Money     `gorm:"type:decimal(20,2);not null" json:"amount"`           // 支付金额
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`             // 状态（固定 paid）
	PaidAt      time.Time `gorm:"not null;index" json:"paid_at"`                       // 支付时间
	PaidBy      string    `gorm:"type:varchar(64)" json:"paid_by,omitempty"`           // 操作人
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`                    // 备注
	CreatedAt   time.Time `json:"created_at"`                                          // 写入时间
}

// TableName 指定表名
func (PaymentRecord) TableName() string {
	return "payment_records"
}
