package repository

import (
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRecordRepository 佣金支付流水数据访问接口
// 流水只追加：接口不提供更新与删除
type PaymentRecordRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PaymentRecordRepository

	Create(record *models.PaymentRecord) error
	SumPaidByCouponCode(couponCode string) (decimal.Decimal, error)
	ListByAffiliateID(affiliateID string, page, pageSize int) ([]models.PaymentRecord, int64, error)
}

// GormPaymentRecordRepository GORM 佣金支付流水仓储
type GormPaymentRecordRepository struct {
	db *gorm.DB
}

// NewPaymentRecordRepository 创建佣金支付流水仓储
func NewPaymentRecordRepository(db *gorm.DB) *GormPaymentRecordRepository {
	return &GormPaymentRecordRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRecordRepository) WithTx(tx *gorm.DB) PaymentRecordRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRecordRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPaymentRecordRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 追加佣金支付流水
func (r *GormPaymentRecordRepository) Create(record *models.PaymentRecord) error {
	return r.db.Create(record).Error
}

// SumPaidByCouponCode 汇总指定优惠券码的已付佣金
func (r *GormPaymentRecordRepository) SumPaidByCouponCode(couponCode string) (decimal.Decimal, error) {
	normalized := strings.TrimSpace(couponCode)
	if normalized == "" {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := r.db.Model(&models.PaymentRecord{}).
		Where("coupon_code = ? AND status = ?", normalized, constants.PaymentRecordStatusPaid).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}

// ListByAffiliateID 按推广伙伴查询支付流水
func (r *GormPaymentRecordRepository) ListByAffiliateID(affiliateID string, page, pageSize int) ([]models.PaymentRecord, int64, error) {
	normalized := strings.TrimSpace(affiliateID)
	if normalized == "" {
		return []models.PaymentRecord{}, 0, nil
	}
	query := r.db.Model(&models.PaymentRecord{}).Where("affiliate_id = ?", normalized)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, page, pageSize)

	var rows []models.PaymentRecord
	if err := query.Order("paid_at desc, id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
