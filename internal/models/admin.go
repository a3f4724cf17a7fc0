package models

import "time"

// Admin 运营后台账号
// 联盟申请审核、佣金对账等管理操作均以该账号身份执行
type Admin struct {
	ID                 uint       `gorm:"primarykey" json:"id"`
	Username           string     `gorm:"uniqueIndex;not null" json:"username"`         // 登录账号
	PasswordHash       string     `gorm:"not null" json:"-"`                            // bcrypt 哈希（不返回给前端）
	IsSuper            bool       `gorm:"not null;default:false;index" json:"is_super"` // 超级管理员免权限校验
	Enabled            bool       `gorm:"not null;default:true" json:"enabled"`         // 停用后禁止登录，已签发 Token 同步失效
	TokenVersion       uint64     `gorm:"not null;default:0" json:"-"`                  // 版本号不匹配的 Token 视为已吊销
	TokenInvalidBefore *time.Time `gorm:"index" json:"-"`                               // 早于该时间签发的 Token 失效
	LastLoginAt        *time.Time `json:"last_login_at"`
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// CanLogin 账号是否允许登录
func (a *Admin) CanLogin() bool {
	return a != nil && a.Enabled
}

// AcceptsToken 判断给定版本与签发时间的 Token 是否仍被该账号接受
// 签发时间按 Unix 秒比较，与 JWT iat 的精度保持一致
func (a *Admin) AcceptsToken(version uint64, issuedAt time.Time) bool {
	if a == nil || version != a.TokenVersion {
		return false
	}
	if a.TokenInvalidBefore == nil {
		return true
	}
	return issuedAt.Unix() >= a.TokenInvalidBefore.Unix()
}

// RevokeIssuedTokens 吊销该账号所有已签发的 Token
// 调用后需持久化并刷新鉴权快照才会生效
func (a *Admin) RevokeIssuedTokens(now time.Time) {
	if a == nil {
		return
	}
	a.TokenVersion++
	a.TokenInvalidBefore = &now
}

// TouchLogin 记录最后登录时间
func (a *Admin) TouchLogin(now time.Time) {
	if a == nil {
		return
	}
	a.LastLoginAt = &now
}
