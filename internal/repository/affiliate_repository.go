package repository

import (
	"errors"
	"strconv"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateListFilter 推广伙伴列表查询条件
type AffiliateListFilter struct {
	Status   string
	Keyword  string
	Page     int
	PageSize int
}

// AffiliateRepository 推广伙伴数据访问接口
type AffiliateRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateRepository

	Create(affiliate *models.Affiliate) error
	GetByAffiliateID(affiliateID string) (*models.Affiliate, error)
	GetByAffiliateIDForUpdate(affiliateID string) (*models.Affiliate, error)
	GetByEmail(email string) (*models.Affiliate, error)
	GetByCouponCode(couponCode string) (*models.Affiliate, error)
	List(filter AffiliateListFilter) ([]models.Affiliate, int64, error)
	Count(status string) (int64, error)
	ListByStatuses(statuses []string) ([]models.Affiliate, error)
	MaxAffiliateSeq() (int, error)
	UpdateStatusFrom(affiliateID string, expectedStatuses []string, updates map[string]interface{}) (int64, error)
	UpdateFields(affiliateID string, updates map[string]interface{}) error
	SetCouponCode(affiliateID, couponCode string) (int64, error)
	Delete(affiliateID string) (int64, error)
}

// GormAffiliateRepository GORM 推广伙伴仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广伙伴仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateRepository) WithTx(tx *gorm.DB) AffiliateRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建推广伙伴
func (r *GormAffiliateRepository) Create(affiliate *models.Affiliate) error {
	return r.db.Create(affiliate).Error
}

// GetByAffiliateID 按对外编号获取推广伙伴
func (r *GormAffiliateRepository) GetByAffiliateID(affiliateID string) (*models.Affiliate, error) {
	normalized := strings.TrimSpace(affiliateID)
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("affiliate_id = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByAffiliateIDForUpdate 按对外编号锁定获取推广伙伴
func (r *GormAffiliateRepository) GetByAffiliateIDForUpdate(affiliateID string) (*models.Affiliate, error) {
	normalized := strings.TrimSpace(affiliateID)
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("affiliate_id = ?", normalized).
		First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByEmail 按邮箱获取推广伙伴（区分大小写精确匹配）
func (r *GormAffiliateRepository) GetByEmail(email string) (*models.Affiliate, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("email = ?", email).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// GetByCouponCode 按优惠券码获取推广伙伴
func (r *GormAffiliateRepository) GetByCouponCode(couponCode string) (*models.Affiliate, error) {
	normalized := strings.TrimSpace(couponCode)
	if normalized == "" {
		return nil, nil
	}
	var affiliate models.Affiliate
	if err := r.db.Where("coupon_code = ?", normalized).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &affiliate, nil
}

// List 查询推广伙伴列表
func (r *GormAffiliateRepository) List(filter AffiliateListFilter) ([]models.Affiliate, int64, error) {
	query := r.db.Model(&models.Affiliate{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		condition, argCount := buildKeywordLikeCondition(r.db, []string{
			"first_name", "last_name", "email", "affiliate_id", "coupon_code",
		})
		if argCount > 0 {
			query = query.Where("("+condition+")", repeatLikeArgs(like, argCount)...)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Affiliate
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Count 统计推广伙伴数量（status 为空时统计全部）
func (r *GormAffiliateRepository) Count(status string) (int64, error) {
	query := r.db.Model(&models.Affiliate{})
	if normalized := strings.TrimSpace(status); normalized != "" {
		query = query.Where("status = ?", normalized)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ListByStatuses 按状态集合查询推广伙伴
func (r *GormAffiliateRepository) ListByStatuses(statuses []string) ([]models.Affiliate, error) {
	if len(statuses) == 0 {
		return []models.Affiliate{}, nil
	}
	var rows []models.Affiliate
	if err := r.db.Where("status IN ?", statuses).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MaxAffiliateSeq 扫描现有编号返回最大序号
// 编号容忍空洞：删除过的序号不复用，分配时取最大值 +1
func (r *GormAffiliateRepository) MaxAffiliateSeq() (int, error) {
	var ids []string
	if err := r.db.Model(&models.Affiliate{}).Pluck("affiliate_id", &ids).Error; err != nil {
		return 0, err
	}
	max := 0
	for _, id := range ids {
		suffix := strings.TrimPrefix(id, constants.AffiliateIDPrefix)
		seq, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max, nil
}

// UpdateStatusFrom 带前置状态条件的状态更新
// 返回受影响行数：0 表示当前状态不在预期集合内（或记录不存在），由调用方判定
func (r *GormAffiliateRepository) UpdateStatusFrom(affiliateID string, expectedStatuses []string, updates map[string]interface{}) (int64, error) {
	normalized := strings.TrimSpace(affiliateID)
	if normalized == "" || len(updates) == 0 {
		return 0, nil
	}
	query := r.db.Model(&models.Affiliate{}).Where("affiliate_id = ?", normalized)
	if len(expectedStatuses) > 0 {
		query = query.Where("status IN ?", expectedStatuses)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateFields 更新推广伙伴字段
func (r *GormAffiliateRepository) UpdateFields(affiliateID string, updates map[string]interface{}) error {
	normalized := strings.TrimSpace(affiliateID)
	if normalized == "" || len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.Affiliate{}).
		Where("affiliate_id = ?", normalized).
		Updates(updates).Error
}

// SetCouponCode 一次性写入优惠券码
// 仅当尚未分配时写入，重复审核不会覆盖已有券码
func (r *GormAffiliateRepository) SetCouponCode(affiliateID, couponCode string) (int64, error) {
	normalized := strings.TrimSpace(affiliateID)
	code := strings.TrimSpace(couponCode)
	if normalized == "" || code == "" {
		return 0, nil
	}
	result := r.db.Model(&models.Affiliate{}).
		Where("affiliate_id = ? AND (coupon_code IS NULL OR coupon_code = '')", normalized).
		Update("coupon_code", code)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete 硬删除推广伙伴
// 佣金支付流水不级联删除，财务记录单独保留
func (r *GormAffiliateRepository) Delete(affiliateID string) (int64, error) {
	normalized := strings.TrimSpace(affiliateID)
	if normalized == "" {
		return 0, nil
	}
	result := r.db.Where("affiliate_id = ?", normalized).Delete(&models.Affiliate{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
