package admin

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/authz"
	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/models"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// authzLog 记录一次授权变更，统一补上操作者
func authzLog(c *gin.Context, event string, kv ...interface{}) {
	fields := append([]interface{}{"operator_admin_id", currentAdminID(c)}, kv...)
	requestLog(c).Infow(event, fields...)
}

// requireRoleParam 解析 :role 路径参数，缺失时已写出响应
func requireRoleParam(c *gin.Context) (string, bool) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "role is required", nil)
		return "", false
	}
	return role, true
}

// requireAdminByID 读取 :id 指向的管理员，查不到时已写出响应
func (h *Handler) requireAdminByID(c *gin.Context, failMsg string) (*models.Admin, bool) {
	adminID, ok := parseAdminIDParam(c)
	if !ok {
		return nil, false
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, failMsg, err)
		return nil, false
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "admin not found", nil)
		return nil, false
	}
	return admin, true
}

// GetAuthzMe 获取当前管理员的角色与策略快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch permissions failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch permissions failed", err)
		return
	}

	value, _ := c.Get("admin_is_super")
	isSuper, _ := value.(bool)

	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": isSuper,
		"roles":    roles,
		"policies": policies,
	})
}

// ListAuthzRoles 获取角色列表，预置角色带 builtin 标记
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "fetch roles failed", err)
		return
	}

	items := make([]gin.H, 0, len(roles))
	for _, role := range roles {
		items = append(items, gin.H{
			"role":    role,
			"builtin": authz.IsBuiltinRole(role),
		})
	}
	response.Success(c, items)
}

// CreateAuthzRole 创建空角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	var req authzRolePayload
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	authzLog(c, "admin_authz_role_created", "role", role)
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除角色及其策略与成员关系，预置角色拒绝删除
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	role, ok := requireRoleParam(c)
	if !ok {
		return
	}

	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	authzLog(c, "admin_authz_role_deleted", "role", role)
	response.Success(c, nil)
}

// GetAuthzRolePolicies 获取角色策略列表
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role, ok := requireRoleParam(c)
	if !ok {
		return
	}

	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}
	response.Success(c, policies)
}

// applyPolicyChange 授予与撤销共用的策略变更骨架
func (h *Handler) applyPolicyChange(c *gin.Context, event string, change func(role, object, action string) error) {
	var req authzPolicyPayload
	if !bindJSON(c, &req) {
		return
	}

	if err := change(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	authzLog(c, event, "role", req.Role, "object", req.Object, "action", req.Action)
	response.Success(c, nil)
}

// GrantAuthzPolicy 为角色授予一条策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	h.applyPolicyChange(c, "admin_authz_policy_granted", h.AuthzService.GrantRolePolicy)
}

// RevokeAuthzPolicy 撤销角色的一条策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	h.applyPolicyChange(c, "admin_authz_policy_revoked", h.AuthzService.RevokeRolePolicy)
}

// GetAuthzAdminRoles 获取指定管理员的角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	admin, ok := h.requireAdminByID(c, "fetch admin failed")
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(admin.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "fetch admin roles failed", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRoles 覆盖式设置指定管理员的角色集合
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	admin, ok := h.requireAdminByID(c, "fetch admin failed")
	if !ok {
		return
	}

	var req authzSetAdminRolesPayload
	if !bindJSON(c, &req) {
		return
	}

	if err := h.AuthzService.SetAdminRoles(admin.ID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, err.Error(), nil)
		return
	}

	authzLog(c, "admin_authz_admin_roles_updated", "target_admin_id", admin.ID, "roles", req.Roles)
	response.Success(c, nil)
}

func parseAdminIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid admin id", nil)
		return 0, false
	}
	return uint(id), true
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
