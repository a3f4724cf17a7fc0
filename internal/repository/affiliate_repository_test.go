package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupAffiliateRepoTest(t *testing.T) *GormAffiliateRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:affiliate_repo_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Affiliate{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewAffiliateRepository(db)
}

func seedAffiliate(t *testing.T, repo *GormAffiliateRepository, affiliateID, email, status string) *models.Affiliate {
	t.Helper()

	affiliate := &models.Affiliate{
		AffiliateID:    affiliateID,
		FirstName:      "Jane",
		LastName:       "Smith",
		Email:          email,
		Phone:          "+1-718-555-0100",
		ReferralLink:   "https://parkslope.example.com/?ref=" + affiliateID,
		Status:         status,
		CommissionRate: decimal.NewFromInt(10),
	}
	if err := repo.Create(affiliate); err != nil {
		t.Fatalf("seed affiliate %s failed: %v", affiliateID, err)
	}
	return affiliate
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := setupAffiliateRepoTest(t)
	seedAffiliate(t, repo, "AFF-001", "jane@example.com", constants.AffiliateStatusPending)

	dup := &models.Affiliate{
		AffiliateID:    "AFF-002",
		FirstName:      "June",
		LastName:       "Smith",
		Email:          "jane@example.com",
		Phone:          "+1-718-555-0101",
		ReferralLink:   "https://parkslope.example.com/?ref=AFF-002",
		Status:         constants.AffiliateStatusPending,
		CommissionRate: decimal.NewFromInt(10),
	}
	if err := repo.Create(dup); err == nil {
		t.Fatalf("expected duplicate email insert to fail")
	}
}

func TestUpdateStatusFromRequiresExpectedStatus(t *testing.T) {
	repo := setupAffiliateRepoTest(t)
	seedAffiliate(t, repo, "AFF-001", "jane@example.com", constants.AffiliateStatusPending)

	rows, err := repo.UpdateStatusFrom("AFF-001",
		[]string{constants.AffiliateStatusPending},
		map[string]interface{}{"status": constants.AffiliateStatusApproved})
	if err != nil {
		t.Fatalf("approve transition failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row updated, got %d", rows)
	}

	// 前置状态已不满足，同一转换不应再次生效
	rows, err = repo.UpdateStatusFrom("AFF-001",
		[]string{constants.AffiliateStatusPending},
		map[string]interface{}{"status": constants.AffiliateStatusRejected})
	if err != nil {
		t.Fatalf("second transition failed: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows on stale expected status, got %d", rows)
	}

	affiliate, err := repo.GetByAffiliateID("AFF-001")
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if affiliate == nil || affiliate.Status != constants.AffiliateStatusApproved {
		t.Fatalf("expected status approved preserved, got %+v", affiliate)
	}

	rows, err = repo.UpdateStatusFrom("AFF-404",
		[]string{constants.AffiliateStatusPending},
		map[string]interface{}{"status": constants.AffiliateStatusApproved})
	if err != nil {
		t.Fatalf("unknown id transition failed: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows for unknown affiliate, got %d", rows)
	}
}

func TestSetCouponCodeWritesOnlyOnce(t *testing.T) {
	repo := setupAffiliateRepoTest(t)
	seedAffiliate(t, repo, "AFF-001", "jane@example.com", constants.AffiliateStatusApproved)

	rows, err := repo.SetCouponCode("AFF-001", "PS15A2B")
	if err != nil {
		t.Fatalf("first coupon write failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected first coupon write to hit 1 row, got %d", rows)
	}

	rows, err = repo.SetCouponCode("AFF-001", "BK99XYZ")
	if err != nil {
		t.Fatalf("second coupon write failed: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected second coupon write to be ignored, got %d rows", rows)
	}

	affiliate, err := repo.GetByAffiliateID("AFF-001")
	if err != nil {
		t.Fatalf("reload affiliate failed: %v", err)
	}
	if affiliate.CouponCodeValue() != "PS15A2B" {
		t.Fatalf("expected original coupon kept, got %q", affiliate.CouponCodeValue())
	}

	rows, err = repo.SetCouponCode("AFF-001", "   ")
	if err != nil {
		t.Fatalf("blank coupon write failed: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected blank coupon input to short-circuit, got %d rows", rows)
	}
}

func TestMaxAffiliateSeqToleratesGaps(t *testing.T) {
	repo := setupAffiliateRepoTest(t)

	max, err := repo.MaxAffiliateSeq()
	if err != nil {
		t.Fatalf("max seq on empty table failed: %v", err)
	}
	if max != 0 {
		t.Fatalf("expected 0 on empty table, got %d", max)
	}

	seedAffiliate(t, repo, "AFF-003", "jane@example.com", constants.AffiliateStatusApproved)
	seedAffiliate(t, repo, "AFF-010", "june@example.com", constants.AffiliateStatusPending)
	// 历史导入的非标准编号不参与序号推进
	seedAffiliate(t, repo, "LEGACY-7", "mia@example.com", constants.AffiliateStatusInactive)

	max, err = repo.MaxAffiliateSeq()
	if err != nil {
		t.Fatalf("max seq failed: %v", err)
	}
	if max != 10 {
		t.Fatalf("expected max seq 10 across gaps, got %d", max)
	}
}

func TestListFiltersByStatusAndKeyword(t *testing.T) {
	repo := setupAffiliateRepoTest(t)
	seedAffiliate(t, repo, "AFF-001", "jane@example.com", constants.AffiliateStatusPending)
	seedAffiliate(t, repo, "AFF-002", "june@example.com", constants.AffiliateStatusApproved)
	seedAffiliate(t, repo, "AFF-003", "mia@example.com", constants.AffiliateStatusApproved)

	rows, total, err := repo.List(AffiliateListFilter{Status: constants.AffiliateStatusApproved})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 approved affiliates, got total=%d rows=%d", total, len(rows))
	}
	if rows[0].AffiliateID != "AFF-003" {
		t.Fatalf("expected newest first, got %q", rows[0].AffiliateID)
	}

	rows, total, err = repo.List(AffiliateListFilter{Keyword: "june"})
	if err != nil {
		t.Fatalf("list by keyword failed: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].AffiliateID != "AFF-002" {
		t.Fatalf("expected keyword match AFF-002, got total=%d rows=%v", total, rows)
	}

	rows, total, err = repo.List(AffiliateListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("paged list failed: %v", err)
	}
	if total != 3 || len(rows) != 1 {
		t.Fatalf("expected second page with 1 row of 3, got total=%d rows=%d", total, len(rows))
	}
}

func TestDeleteReportsAffectedRows(t *testing.T) {
	repo := setupAffiliateRepoTest(t)
	seedAffiliate(t, repo, "AFF-001", "jane@example.com", constants.AffiliateStatusRejected)

	rows, err := repo.Delete("AFF-001")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row deleted, got %d", rows)
	}

	rows, err = repo.Delete("AFF-001")
	if err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows on repeat delete, got %d", rows)
	}

	affiliate, err := repo.GetByAffiliateID("AFF-001")
	if err != nil {
		t.Fatalf("lookup after delete failed: %v", err)
	}
	if affiliate != nil {
		t.Fatalf("expected affiliate gone, got %+v", affiliate)
	}
}
