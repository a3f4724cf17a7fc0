package repository

import (
	"errors"

	"github.com/astrocyte/PSOLOMON/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 运营账号数据访问接口
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	List() ([]models.Admin, error)
	Count() (int64, error)
	Create(admin *models.Admin) error
	Update(admin *models.Admin) error
	// UpdateFields 只更新指定列，不整行覆盖
	UpdateFields(id uint, fields map[string]interface{}) error
}

// GormAdminRepository 基于 GORM 的实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建运营账号仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

// firstAdmin 查找满足条件的第一条记录，未找到返回 nil 而非错误
func (r *GormAdminRepository) firstAdmin(query string, args ...interface{}) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.Where(query, args...).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// GetByUsername 按登录账号查找
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	return r.firstAdmin("username = ?", username)
}

// GetByID 按主键查找
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	return r.firstAdmin("id = ?", id)
}

// List 按创建顺序返回全部运营账号
func (r *GormAdminRepository) List() ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.Order("id asc").Find(&admins).Error
	return admins, err
}

// Count 统计运营账号数量
func (r *GormAdminRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Admin{}).Count(&count).Error
	return count, err
}

// Create 创建运营账号
func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// Update 整行保存运营账号
// 涉及 Token 吊销的写入必须走该方法，保证版本号与时间戳同时落库
func (r *GormAdminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}

// UpdateFields 只更新指定列
// 登录时间戳等单列写入走该方法，避免整行 Save 覆盖并发的吊销操作
func (r *GormAdminRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if id == 0 || len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Updates(fields).Error
}
