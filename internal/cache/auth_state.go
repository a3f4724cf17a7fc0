package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// AdminAuthState 管理员登录态快照，缓存于 Redis 供鉴权中间件免查库校验。
// TokenInvalidBefore 为 Unix 秒时间戳，0 表示未设置吊销线。
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	Enabled            bool   `json:"enabled"`
	IsSuper            bool   `json:"is_super"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	UpdatedAt          int64  `json:"updated_at"`
}

// AcceptsToken 判断快照是否接受给定版本与签发时间的 Token
// 与 models.Admin.AcceptsToken 语义一致，按 Unix 秒比较
func (s *AdminAuthState) AcceptsToken(version uint64, issuedAt time.Time) bool {
	if s == nil || version != s.TokenVersion {
		return false
	}
	if s.TokenInvalidBefore <= 0 {
		return true
	}
	return issuedAt.Unix() >= s.TokenInvalidBefore
}

func adminAuthStateKey(adminID uint) string {
	return "auth:admin:" + strconv.FormatUint(uint64(adminID), 10)
}

// BuildAdminAuthState 以当前时间为快照时间，从管理员记录生成登录态快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		Enabled:      admin.Enabled,
		IsSuper:      admin.IsSuper,
		TokenVersion: admin.TokenVersion,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

// GetAdminAuthState 读取登录态快照，未命中时返回 hit=false 且不报错
func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	if adminID == 0 {
		return nil, false, nil
	}
	var state AdminAuthState
	hit, err := GetJSON(ctx, adminAuthStateKey(adminID), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

// SetAdminAuthState 写库成功后刷新快照，让中间件尽快看到吊销与停用
func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, adminAuthStateKey(state.AdminID), state, authStateCacheTTL)
}

// DelAdminAuthState 清除登录态快照，登出与删号路径调用
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return Del(ctx, adminAuthStateKey(adminID))
}
