package models

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const rootAdminUsername = "admin"

// InitDefaultAdmin 初始化默认运营账号
// 库中无账号时创建，未指定密码则生成随机密码并写入日志
func InitDefaultAdmin(username, password string) error {
	var count int64
	DB.Model(&Admin{}).Count(&count)
	if count > 0 {
		ensureRootAdminSuper()
		return nil
	}

	if username == "" {
		username = rootAdminUsername
	}
	if password != "" {
		if err := createRootAdmin(username, password); err != nil {
			return err
		}
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
		return nil
	}

	random, err := randomPassword()
	if err != nil {
		return err
	}
	if err := createRootAdmin(username, random); err != nil {
		return err
	}
	logger.Warnw("default_admin_created_with_generated_password", "username", username, "password", random)
	logger.Warnw("default_admin_password_change_required", "username", username)
	return nil
}

// createRootAdmin 以给定口令创建首个运营账号
func createRootAdmin(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		IsSuper:      strings.EqualFold(strings.TrimSpace(username), rootAdminUsername),
		Enabled:      true,
	}
	return DB.Create(&admin).Error
}

// ensureRootAdminSuper 保证名为 admin 的账号始终持有超级管理员标记
func ensureRootAdminSuper() {
	err := DB.Model(&Admin{}).
		Where("username = ?", rootAdminUsername).
		Updates(map[string]interface{}{"is_super": true, "enabled": true}).Error
	if err != nil {
		logger.Warnw("ensure_root_admin_super_failed", "error", err)
	}
}

// randomPassword 生成 24 位十六进制随机口令
func randomPassword() (string, error) {
	buf := make([]byte, 12)
	_, err := rand.Read(buf)
	return hex.EncodeToString(buf), err
}
