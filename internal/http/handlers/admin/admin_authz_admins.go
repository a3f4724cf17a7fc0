package admin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/astrocyte/PSOLOMON/internal/cache"
	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/models"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
)

// 初始超管账号不可降权、不可停用
const protectedSuperAdminUsername = "admin"

type authzCreateAdminPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IsSuper  *bool  `json:"is_super"`
	Enabled  *bool  `json:"enabled"`
}

type authzUpdateAdminPayload struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	IsSuper  *bool   `json:"is_super"`
	Enabled  *bool   `json:"enabled"`
}

func isProtectedAdminName(username string) bool {
	return strings.EqualFold(strings.TrimSpace(username), protectedSuperAdminUsername)
}

// vetAdminPassword 校验并哈希管理端口令。
// 返回 false 时响应已写出，调用方直接 return 即可。
func (h *Handler) vetAdminPassword(c *gin.Context, raw, failMsg string) (string, bool) {
	password := strings.TrimSpace(raw)
	if password == "" {
		respondError(c, response.CodeBadRequest, "password is required", nil)
		return "", false
	}
	if err := h.AuthService.ValidatePassword(password); err != nil {
		if errors.Is(err, service.ErrWeakPassword) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
		} else {
			respondError(c, response.CodeInternal, failMsg, err)
		}
		return "", false
	}
	hash, err := h.AuthService.HashPassword(password)
	if err != nil {
		respondError(c, response.CodeInternal, failMsg, err)
		return "", false
	}
	return hash, true
}

// usernameTaken 检查用户名是否被 excludeID 之外的账号占用
func (h *Handler) usernameTaken(username string, excludeID uint) (bool, error) {
	existing, err := h.AdminRepo.GetByUsername(username)
	if err != nil {
		return false, err
	}
	return existing != nil && existing.ID != excludeID, nil
}

// ListAuthzAdmins 获取管理员列表及各自角色
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	admins, err := h.AdminRepo.List()
	if err != nil {
		respondError(c, response.CodeInternal, "fetch admins failed", err)
		return
	}

	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		roles, roleErr := h.AuthzService.GetAdminRoles(admin.ID)
		if roleErr != nil {
			respondError(c, response.CodeInternal, "fetch admin roles failed", roleErr)
			return
		}
		items = append(items, gin.H{
			"id":            admin.ID,
			"username":      admin.Username,
			"is_super":      admin.IsSuper,
			"enabled":       admin.Enabled,
			"last_login_at": admin.LastLoginAt,
			"created_at":    admin.CreatedAt,
			"roles":         roles,
		})
	}
	response.Success(c, items)
}

// CreateAuthzAdmin 创建管理员账号
func (h *Handler) CreateAuthzAdmin(c *gin.Context) {
	var req authzCreateAdminPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	username, err := normalizeAdminUsername(req.Username)
	if err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	taken, err := h.usernameTaken(username, 0)
	if err != nil {
		respondError(c, response.CodeInternal, "create admin failed", err)
		return
	}
	if taken {
		respondError(c, response.CodeConflict, "username already exists", nil)
		return
	}
	hash, ok := h.vetAdminPassword(c, req.Password, "create admin failed")
	if !ok {
		return
	}

	admin := &models.Admin{
		Username:     username,
		PasswordHash: hash,
		IsSuper:      (req.IsSuper != nil && *req.IsSuper) || isProtectedAdminName(username),
		Enabled:      req.Enabled == nil || *req.Enabled,
	}
	if err := h.AdminRepo.Create(admin); err != nil {
		respondError(c, response.CodeInternal, "create admin failed", err)
		return
	}
	_ = cache.SetAdminAuthState(c.Request.Context(), cache.BuildAdminAuthState(admin))

	requestLog(c).Infow("admin_authz_admin_created",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", admin.ID,
		"target_username", admin.Username,
		"is_super", admin.IsSuper,
	)
	response.Success(c, admin)
}

// UpdateAuthzAdmin 更新管理员账号
// 支持改名、重置密码、调整超管标记与启用状态；改密后旧 Token 全部失效。
// 没有删除接口，停用账号即回收登录能力，账号与操作痕迹保留可查。
func (h *Handler) UpdateAuthzAdmin(c *gin.Context) {
	adminID, ok := parseAdminIDParam(c)
	if !ok {
		return
	}

	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "update admin failed", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return
	}

	var req authzUpdateAdminPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return
	}

	protected := isProtectedAdminName(admin.Username)
	updatedFields := make([]string, 0, 4)

	if req.Username != nil {
		next, err := normalizeAdminUsername(*req.Username)
		if err != nil {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		if protected && !isProtectedAdminName(next) {
			respondError(c, response.CodeBadRequest, "protected admin cannot be renamed", nil)
			return
		}
		if next != admin.Username {
			taken, err := h.usernameTaken(next, admin.ID)
			if err != nil {
				respondError(c, response.CodeInternal, "update admin failed", err)
				return
			}
			if taken {
				respondError(c, response.CodeConflict, "username already exists", nil)
				return
			}
			admin.Username = next
			updatedFields = append(updatedFields, "username")
		}
	}

	if req.IsSuper != nil {
		next := *req.IsSuper || protected
		if admin.IsSuper != next {
			admin.IsSuper = next
			updatedFields = append(updatedFields, "is_super")
		}
	}

	if req.Enabled != nil {
		next := *req.Enabled
		if !next {
			if protected {
				respondError(c, response.CodeBadRequest, "protected admin cannot be disabled", nil)
				return
			}
			if currentAdminID(c) == admin.ID {
				respondError(c, response.CodeBadRequest, "cannot disable your own account", nil)
				return
			}
		}
		if admin.Enabled != next {
			admin.Enabled = next
			updatedFields = append(updatedFields, "enabled")
		}
	}

	if req.Password != nil {
		hash, ok := h.vetAdminPassword(c, *req.Password, "update admin failed")
		if !ok {
			return
		}
		admin.PasswordHash = hash
		admin.RevokeIssuedTokens(time.Now())
		updatedFields = append(updatedFields, "password")
	}

	if len(updatedFields) == 0 {
		respondError(c, response.CodeBadRequest, "no fields to update", nil)
		return
	}

	if err := h.AdminRepo.Update(admin); err != nil {
		respondError(c, response.CodeInternal, "update admin failed", err)
		return
	}
	_ = cache.SetAdminAuthState(c.Request.Context(), cache.BuildAdminAuthState(admin))

	sort.Strings(updatedFields)
	if currentAdminID(c) == admin.ID {
		c.Set("admin_is_super", admin.IsSuper)
	}

	requestLog(c).Infow("admin_authz_admin_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", admin.ID,
		"target_username", admin.Username,
		"updated_fields", updatedFields,
	)
	response.Success(c, admin)
}

func normalizeAdminUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	switch {
	case trimmed == "":
		return "", fmt.Errorf("username is required")
	case strings.ContainsAny(trimmed, " \t\r\n"):
		return "", fmt.Errorf("username must not contain whitespace")
	}
	if n := utf8.RuneCountInString(trimmed); n < 3 || n > 64 {
		return "", fmt.Errorf("username must be 3 to 64 characters")
	}
	return trimmed, nil
}
