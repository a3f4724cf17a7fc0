package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/commerce"
	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/models"
	"github.com/astrocyte/PSOLOMON/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AffiliateApplyInput 推广申请参数
type AffiliateApplyInput struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Company        string `json:"company"`
	ReferralSource string `json:"referral_source"`
	Motivation     string `json:"motivation"`
}

// AffiliateProfilePatch 推广伙伴资料补丁（仅更新非 nil 字段）
type AffiliateProfilePatch struct {
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	Company        *string `json:"company"`
	ReferralSource *string `json:"referral_source"`
	Motivation     *string `json:"motivation"`
	Notes          *string `json:"notes"`
}

// AffiliateService 推广伙伴生命周期服务
type AffiliateService struct {
	repo     repository.AffiliateRepository
	gateway  commerce.Gateway
	settings *SettingService
	notifier *NotificationService
	defaults config.AffiliateConfig

	now func() time.Time

	settingMu     sync.RWMutex
	cachedSetting AffiliateSetting
	cachedAt      time.Time
	settingTTL    time.Duration
}

// NewAffiliateService 创建推广伙伴生命周期服务
func NewAffiliateService(
	repo repository.AffiliateRepository,
	gateway commerce.Gateway,
	settingService *SettingService,
	notifier *NotificationService,
	defaults config.AffiliateConfig,
) *AffiliateService {
	return &AffiliateService{
		repo:       repo,
		gateway:    gateway,
		settings:   settingService,
		notifier:   notifier,
		defaults:   defaults,
		now:        time.Now,
		settingTTL: 30 * time.Second,
	}
}

// Setting 获取推广计划设置（短 TTL 本地缓存）
func (s *AffiliateService) Setting() (AffiliateSetting, error) {
	now := s.now()
	s.settingMu.RLock()
	if !s.cachedAt.IsZero() && now.Sub(s.cachedAt) <= s.settingTTL {
		cached := s.cachedSetting
		s.settingMu.RUnlock()
		return cached, nil
	}
	s.settingMu.RUnlock()

	setting, err := s.settings.GetAffiliateSetting(s.defaults)
	if err != nil {
		return AffiliateDefaultSetting(s.defaults), err
	}

	s.settingMu.Lock()
	s.cachedSetting = setting
	s.cachedAt = now
	s.settingMu.Unlock()
	return setting, nil
}

// InvalidateSettingCache 失效本地设置缓存（后台保存设置后调用）
func (s *AffiliateService) InvalidateSettingCache() {
	if s == nil {
		return
	}
	s.settingMu.Lock()
	s.cachedAt = time.Time{}
	s.settingMu.Unlock()
}

// Create 受理推广申请并分配对外编号
func (s *AffiliateService) Create(ctx context.Context, input AffiliateApplyInput) (*models.Affiliate, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Company = strings.TrimSpace(input.Company)
	input.ReferralSource = strings.TrimSpace(input.ReferralSource)
	input.Motivation = strings.TrimSpace(input.Motivation)

	if input.FirstName == "" {
		return nil, fmt.Errorf("%w: first name is required", ErrValidation)
	}
	if input.LastName == "" {
		return nil, fmt.Errorf("%w: last name is required", ErrValidation)
	}
	if input.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, fmt.Errorf("%w: email format is invalid", ErrValidation)
	}
	if input.Phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrValidation)
	}

	existing, err := s.repo.GetByEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	setting, err := s.Setting()
	if err != nil {
		logger.Warnw("affiliate_setting_load_failed", "error", err)
	}

	var affiliate *models.Affiliate
	const maxRetry = 8
	for attempt := 0; attempt < maxRetry; attempt++ {
		candidate, buildErr := s.buildAffiliate(input, setting)
		if buildErr != nil {
			return nil, buildErr
		}
		createErr := s.repo.Create(candidate)
		if createErr == nil {
			affiliate = candidate
			break
		}
		if isUniqueViolation(createErr) {
			dup, dupErr := s.repo.GetByEmail(input.Email)
			if dupErr == nil && dup != nil {
				return nil, ErrDuplicateEmail
			}
			// 编号并发冲突，重新取号
			continue
		}
		return nil, createErr
	}
	if affiliate == nil {
		return nil, fmt.Errorf("allocate affiliate id failed after %d attempts", maxRetry)
	}

	s.notifier.Publish(ctx, NotificationEvent{
		Kind:        constants.NotifyEventNewApplication,
		AffiliateID: affiliate.AffiliateID,
		Data: models.JSON{
			"affiliate_id":    affiliate.AffiliateID,
			"name":            affiliate.FirstName + " " + affiliate.LastName,
			"email":           affiliate.Email,
			"phone":           affiliate.Phone,
			"company":         affiliate.Company,
			"referral_source": affiliate.ReferralSource,
			"motivation":      affiliate.Motivation,
		},
	})
	return affiliate, nil
}

func (s *AffiliateService) buildAffiliate(input AffiliateApplyInput, setting AffiliateSetting) (*models.Affiliate, error) {
	maxSeq, err := s.repo.MaxAffiliateSeq()
	if err != nil {
		return nil, err
	}
	affiliateID := fmt.Sprintf("%s%03d", constants.AffiliateIDPrefix, maxSeq+1)
	return &models.Affiliate{
		AffiliateID:    affiliateID,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		Phone:          input.Phone,
		Company:        input.Company,
		ReferralSource: input.ReferralSource,
		Motivation:     input.Motivation,
		ReferralLink:   s.buildReferralLink(affiliateID),
		Status:         constants.AffiliateStatusPending,
		CommissionRate: decimal.NewFromFloat(setting.DefaultCommissionRate).Round(2),
	}, nil
}

func (s *AffiliateService) buildReferralLink(affiliateID string) string {
	base := strings.TrimRight(strings.TrimSpace(s.defaults.SiteBaseURL), "/")
	return fmt.Sprintf("%s/?ref=%s", base, affiliateID)
}

// Approve 审核通过
// 状态落库与商城建券拆分提交：建券失败仅告警，审批结论保留
func (s *AffiliateService) Approve(ctx context.Context, affiliateID, approvedBy string) (*models.Affiliate, error) {
	var affiliate *models.Affiliate
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := txRepo.GetByAffiliateIDForUpdate(affiliateID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		if current.Status == constants.AffiliateStatusApproved {
			affiliate = current
			return nil
		}
		now := s.now()
		rows, err := txRepo.UpdateStatusFrom(current.AffiliateID, []string{current.Status}, map[string]interface{}{
			"status":      constants.AffiliateStatusApproved,
			"approved_at": now,
			"approved_by": strings.TrimSpace(approvedBy),
			"updated_at":  now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: concurrent status change", ErrInvalidTransition)
		}
		refreshed, err := txRepo.GetByAffiliateID(current.AffiliateID)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return ErrNotFound
		}
		affiliate = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ensureCoupon(ctx, affiliate)

	s.notifier.Publish(ctx, NotificationEvent{
		Kind:        constants.NotifyEventApproved,
		AffiliateID: affiliate.AffiliateID,
		Data: models.JSON{
			"affiliate_id":    affiliate.AffiliateID,
			"name":            affiliate.FirstName + " " + affiliate.LastName,
			"email":           affiliate.Email,
			"coupon_code":     affiliate.CouponCodeValue(),
			"referral_link":   affiliate.ReferralLink,
			"commission_rate": affiliate.CommissionRate.StringFixed(2),
		},
	})
	return affiliate, nil
}

// ensureCoupon 为已通过审核的推广伙伴补齐优惠券
// 已有券码时直接跳过，保证重复审批不会产生第二张券
func (s *AffiliateService) ensureCoupon(ctx context.Context, affiliate *models.Affiliate) {
	if affiliate == nil || affiliate.HasCoupon() {
		return
	}
	setting, err := s.Setting()
	if err != nil {
		logger.Warnw("affiliate_setting_load_failed",
			"affiliate_id", affiliate.AffiliateID,
			"error", err,
		)
	}
	if !setting.AutoGenerateCoupon {
		return
	}

	code, err := s.allocateCoupon(ctx, affiliate, setting)
	if err != nil {
		logger.Warnw("affiliate_coupon_allocation_failed",
			"affiliate_id", affiliate.AffiliateID,
			"error", err,
		)
		return
	}

	rows, err := s.repo.SetCouponCode(affiliate.AffiliateID, code)
	if err != nil {
		logger.Warnw("affiliate_coupon_persist_failed",
			"affiliate_id", affiliate.AffiliateID,
			"coupon_code", code,
			"error", err,
		)
		return
	}
	if rows == 0 {
		// 并发审批已写入其他券码，回收本次新建的券
		if s.gateway != nil {
			if delErr := s.gateway.DeleteCoupon(ctx, code); delErr != nil {
				logger.Warnw("affiliate_coupon_rollback_failed", "coupon_code", code, "error", delErr)
			}
		}
		if refreshed, getErr := s.repo.GetByAffiliateID(affiliate.AffiliateID); getErr == nil && refreshed != nil {
			*affiliate = *refreshed
		}
		return
	}
	affiliate.CouponCode = &code
}

// allocateCoupon 逐个尝试候选券码，直到商城建券成功
func (s *AffiliateService) allocateCoupon(ctx context.Context, affiliate *models.Affiliate, setting AffiliateSetting) (string, error) {
	if s.gateway == nil {
		return "", fmt.Errorf("%w: commerce gateway not configured", ErrExternalService)
	}
	candidates := CouponCodeCandidates(affiliate.AffiliateID, affiliate.FirstName, affiliate.LastName, s.now().Year())
	description := fmt.Sprintf("Affiliate coupon for %s %s (%s)", affiliate.FirstName, affiliate.LastName, affiliate.AffiliateID)
	for _, candidate := range candidates {
		_, taken, err := s.gateway.GetCouponIDByCode(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExternalService, err)
		}
		if taken {
			continue
		}
		_, err = s.gateway.CreateCoupon(ctx, commerce.CouponInput{
			Code:           candidate,
			Description:    description,
			DiscountType:   setting.CouponDiscountType,
			DiscountAmount: decimal.NewFromFloat(setting.CouponDiscountAmount),
		})
		if err != nil {
			if errors.Is(err, commerce.ErrDuplicateCouponCode) {
				// 与他处建券撞码，换下一个候选
				continue
			}
			return "", fmt.Errorf("%w: %v", ErrExternalService, err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: coupon code candidates exhausted", ErrExternalService)
}

// Reject 驳回申请
// 任意状态均可驳回，对已通过的伙伴执行即为除名
func (s *AffiliateService) Reject(ctx context.Context, affiliateID string) (*models.Affiliate, error) {
	var affiliate *models.Affiliate
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := txRepo.GetByAffiliateIDForUpdate(affiliateID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		if current.Status == constants.AffiliateStatusRejected {
			affiliate = current
			return nil
		}
		rows, err := txRepo.UpdateStatusFrom(current.AffiliateID, []string{current.Status}, map[string]interface{}{
			"status":     constants.AffiliateStatusRejected,
			"updated_at": s.now(),
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: concurrent status change", ErrInvalidTransition)
		}
		refreshed, err := txRepo.GetByAffiliateID(current.AffiliateID)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return ErrNotFound
		}
		affiliate = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affiliate, nil
}

// Deactivate 停用推广伙伴
// 状态先行提交，商城停券失败记 error 级日志等待人工补偿
func (s *AffiliateService) Deactivate(ctx context.Context, affiliateID string) (*models.Affiliate, error) {
	affiliate, err := s.transitionBetween(affiliateID, constants.AffiliateStatusApproved, constants.AffiliateStatusInactive)
	if err != nil {
		return nil, err
	}

	if affiliate.HasCoupon() && s.gateway != nil {
		if err := s.gateway.DisableCoupon(ctx, affiliate.CouponCodeValue()); err != nil {
			logger.Errorw("affiliate_coupon_disable_failed",
				"affiliate_id", affiliate.AffiliateID,
				"coupon_code", affiliate.CouponCodeValue(),
				"error", err,
			)
		}
	}
	return affiliate, nil
}

// Reactivate 重新启用推广伙伴
// 仅允许从停用状态恢复，恢复时尝试解封商城优惠券
func (s *AffiliateService) Reactivate(ctx context.Context, affiliateID string) (*models.Affiliate, error) {
	affiliate, err := s.transitionBetween(affiliateID, constants.AffiliateStatusInactive, constants.AffiliateStatusApproved)
	if err != nil {
		return nil, err
	}

	if affiliate.HasCoupon() && s.gateway != nil {
		if err := s.gateway.EnableCoupon(ctx, affiliate.CouponCodeValue()); err != nil {
			logger.Errorw("affiliate_coupon_enable_failed",
				"affiliate_id", affiliate.AffiliateID,
				"coupon_code", affiliate.CouponCodeValue(),
				"error", err,
			)
		}
	}
	return affiliate, nil
}

// transitionBetween 在锁内执行前置状态校验后的状态切换
func (s *AffiliateService) transitionBetween(affiliateID, fromStatus, toStatus string) (*models.Affiliate, error) {
	var affiliate *models.Affiliate
	err := s.repo.Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := txRepo.GetByAffiliateIDForUpdate(affiliateID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrNotFound
		}
		if current.Status != fromStatus {
			return fmt.Errorf("%w: expected status %s, current status %s", ErrInvalidTransition, fromStatus, current.Status)
		}
		rows, err := txRepo.UpdateStatusFrom(current.AffiliateID, []string{fromStatus}, map[string]interface{}{
			"status":     toStatus,
			"updated_at": s.now(),
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: concurrent status change", ErrInvalidTransition)
		}
		refreshed, err := txRepo.GetByAffiliateID(current.AffiliateID)
		if err != nil {
			return err
		}
		if refreshed == nil {
			return ErrNotFound
		}
		affiliate = refreshed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affiliate, nil
}

// Delete 硬删除推广伙伴并回收商城优惠券
// 佣金支付流水不随之删除，财务审计记录保留
func (s *AffiliateService) Delete(ctx context.Context, affiliateID string) error {
	affiliate, err := s.repo.GetByAffiliateID(affiliateID)
	if err != nil {
		return err
	}
	if affiliate == nil {
		return ErrNotFound
	}

	rows, err := s.repo.Delete(affiliate.AffiliateID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	if affiliate.HasCoupon() && s.gateway != nil {
		if err := s.gateway.DeleteCoupon(ctx, affiliate.CouponCodeValue()); err != nil {
			logger.Errorw("affiliate_coupon_delete_failed",
				"affiliate_id", affiliate.AffiliateID,
				"coupon_code", affiliate.CouponCodeValue(),
				"error", err,
			)
		}
	}
	return nil
}

// UpdateCommissionRate 调整佣金比例
// 新比例立即作用于全部历史订单的佣金口径，欠额按当前比例重算
func (s *AffiliateService) UpdateCommissionRate(affiliateID string, rate decimal.Decimal) (*models.Affiliate, error) {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: commission rate must be between 0 and 100", ErrValidation)
	}
	affiliate, err := s.repo.GetByAffiliateID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if err := s.repo.UpdateFields(affiliate.AffiliateID, map[string]interface{}{
		"commission_rate": rate.Round(2),
		"updated_at":      s.now(),
	}); err != nil {
		return nil, err
	}
	return s.Get(affiliate.AffiliateID)
}

// UpdateCouponDiscount 调整商城侧优惠券折扣
func (s *AffiliateService) UpdateCouponDiscount(ctx context.Context, affiliateID, discountType string, amount decimal.Decimal) (*models.Affiliate, error) {
	discountType = strings.ToLower(strings.TrimSpace(discountType))
	switch discountType {
	case constants.CouponDiscountTypePercent, constants.CouponDiscountTypeFixedCart, constants.CouponDiscountTypeFixedProduct:
	default:
		return nil, fmt.Errorf("%w: unsupported discount type %q", ErrValidation, discountType)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: discount amount must be positive", ErrValidation)
	}
	if discountType == constants.CouponDiscountTypePercent && amount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("%w: percent discount cannot exceed 100", ErrValidation)
	}

	affiliate, err := s.repo.GetByAffiliateID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	if !affiliate.HasCoupon() {
		return nil, fmt.Errorf("%w: affiliate has no coupon", ErrValidation)
	}
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: commerce gateway not configured", ErrExternalService)
	}

	if err := s.gateway.UpdateCouponDiscount(ctx, affiliate.CouponCodeValue(), discountType, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	return affiliate, nil
}

// UpdateProfile 管理端修改推广伙伴资料
func (s *AffiliateService) UpdateProfile(affiliateID string, patch AffiliateProfilePatch) (*models.Affiliate, error) {
	affiliate, err := s.repo.GetByAffiliateID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}

	updates := map[string]interface{}{}
	if patch.FirstName != nil {
		value := strings.TrimSpace(*patch.FirstName)
		if value == "" {
			return nil, fmt.Errorf("%w: first name cannot be empty", ErrValidation)
		}
		updates["first_name"] = value
	}
	if patch.LastName != nil {
		value := strings.TrimSpace(*patch.LastName)
		if value == "" {
			return nil, fmt.Errorf("%w: last name cannot be empty", ErrValidation)
		}
		updates["last_name"] = value
	}
	if patch.Email != nil {
		value := strings.TrimSpace(*patch.Email)
		if value == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		if _, err := mail.ParseAddress(value); err != nil {
			return nil, fmt.Errorf("%w: email format is invalid", ErrValidation)
		}
		if value != affiliate.Email {
			existing, err := s.repo.GetByEmail(value)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, ErrDuplicateEmail
			}
		}
		updates["email"] = value
	}
	if patch.Phone != nil {
		value := strings.TrimSpace(*patch.Phone)
		if value == "" {
			return nil, fmt.Errorf("%w: phone cannot be empty", ErrValidation)
		}
		updates["phone"] = value
	}
	if patch.Company != nil {
		updates["company"] = strings.TrimSpace(*patch.Company)
	}
	if patch.ReferralSource != nil {
		updates["referral_source"] = strings.TrimSpace(*patch.ReferralSource)
	}
	if patch.Motivation != nil {
		updates["motivation"] = strings.TrimSpace(*patch.Motivation)
	}
	if patch.Notes != nil {
		updates["notes"] = strings.TrimSpace(*patch.Notes)
	}
	if len(updates) == 0 {
		return affiliate, nil
	}

	updates["updated_at"] = s.now()
	if err := s.repo.UpdateFields(affiliate.AffiliateID, updates); err != nil {
		return nil, err
	}
	return s.Get(affiliate.AffiliateID)
}

// Get 按对外编号获取推广伙伴
func (s *AffiliateService) Get(affiliateID string) (*models.Affiliate, error) {
	affiliate, err := s.repo.GetByAffiliateID(affiliateID)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, ErrNotFound
	}
	return affiliate, nil
}

// List 查询推广伙伴列表
func (s *AffiliateService) List(filter repository.AffiliateListFilter) ([]models.Affiliate, int64, error) {
	return s.repo.List(filter)
}

// CountByStatus 按状态统计数量，total 为全部记录数
func (s *AffiliateService) CountByStatus() (map[string]int64, error) {
	statuses := []string{
		constants.AffiliateStatusPending,
		constants.AffiliateStatusApproved,
		constants.AffiliateStatusRejected,
		constants.AffiliateStatusInactive,
	}
	result := make(map[string]int64, len(statuses)+1)
	total, err := s.repo.Count("")
	if err != nil {
		return nil, err
	}
	result["total"] = total
	for _, status := range statuses {
		count, err := s.repo.Count(status)
		if err != nil {
			return nil, err
		}
		result[status] = count
	}
	return result, nil
}

// isUniqueViolation 判断是否为唯一索引冲突
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique") || strings.Contains(message, "duplicate")
}
