package authz

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	rolePrefix      = "role:"

	// roleAnchor 角色占位边：空角色借助它在策略表中保持可见
	roleAnchor = "role:__anchor__"
)

var (
	errServiceUnavailable = errors.New("authz service unavailable")
	errReservedRole       = errors.New("reserved role is not allowed")
	errRoleRequired       = errors.New("role is required")
	errActionRequired     = errors.New("action is required")
	errAdminIDRequired    = errors.New("admin id is required")
	errBuiltinProtected   = errors.New("builtin role cannot be deleted")
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Policy 一条授权策略（主体 / 资源 / 动作）
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

func policyKey(p Policy) string {
	return p.Subject + "\x00" + p.Object + "\x00" + p.Action
}

// Service 管理端 RBAC 授权服务
// 策略持久化在数据库 casbin_rule 表，开启 AutoSave 后增删即落库
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载全部策略
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}

	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return errServiceUnavailable
	}
	return nil
}

// requireRole 合并就绪检查与角色名校验，占位角色一律拒绝
func (s *Service) requireRole(role string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if normalized == roleAnchor {
		return "", errReservedRole
	}
	return normalized, nil
}

// Enforcer 暴露底层 enforcer 供扩展模块复用
func (s *Service) Enforcer() *casbin.SyncedEnforcer {
	if s == nil {
		return nil
	}
	return s.enforcer
}

// Enforce 判定主体对资源的动作是否放行
func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(strings.TrimSpace(sub), NormalizeObject(obj), NormalizeAction(act))
}

// EnforceAdmin 按管理员 ID 判定授权
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	return s.Enforce(SubjectForAdmin(adminID), obj, act)
}

// ReloadPolicy 从存储重新加载策略（外部直接改表后调用）
func (s *Service) ReloadPolicy() error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.enforcer.LoadPolicy()
}

// EnsureRole 确保角色存在并返回规范化角色名
func (s *Service) EnsureRole(role string) (string, error) {
	normalized, err := s.requireRole(role)
	if err != nil {
		return "", err
	}

	exists, err := s.enforcer.HasNamedGroupingPolicy("g", normalized, roleAnchor)
	if err != nil {
		return "", fmt.Errorf("check role failed: %w", err)
	}
	if exists {
		return normalized, nil
	}
	if _, err := s.enforcer.AddNamedGroupingPolicy("g", normalized, roleAnchor); err != nil {
		return "", fmt.Errorf("create role failed: %w", err)
	}
	return normalized, nil
}

// ListRoles 列出全部已知角色
func (s *Service) ListRoles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0)
	if err != nil {
		return nil, fmt.Errorf("list roles failed: %w", err)
	}

	roleSet := make(map[string]struct{})
	for _, rule := range rules {
		// 角色既可能出现在成员边的左侧，也可能作为继承边的右侧
		for _, field := range rule {
			if strings.HasPrefix(field, rolePrefix) && field != roleAnchor {
				roleSet[field] = struct{}{}
			}
		}
	}
	return sortedKeys(roleSet), nil
}

// DeleteRole 删除角色及其全部策略与关联边
// 预置角色受保护，不允许删除
func (s *Service) DeleteRole(role string) error {
	normalized, err := s.requireRole(role)
	if err != nil {
		return err
	}
	if isBuiltinRole(normalized) {
		return errBuiltinProtected
	}

	if _, err := s.enforcer.RemoveFilteredPolicy(0, normalized); err != nil {
		return fmt.Errorf("remove role policy failed: %w", err)
	}
	// 两个方向的 g 边都要清理：角色的成员边与它继承到的父角色边
	for _, fieldIndex := range []int{0, 1} {
		if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", fieldIndex, normalized); err != nil {
			return fmt.Errorf("remove role link failed: %w", err)
		}
	}
	return nil
}

// GrantRolePolicy 为角色授予一条策略（角色不存在时顺带创建）
func (s *Service) GrantRolePolicy(role, object, action string) error {
	normalizedRole, err := s.EnsureRole(role)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return errActionRequired
	}
	if _, err := s.enforcer.AddPolicy(normalizedRole, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RevokeRolePolicy 撤销角色的一条策略
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	normalizedRole, err := s.requireRole(role)
	if err != nil {
		return err
	}
	normalizedAction := NormalizeAction(action)
	if normalizedAction == "" {
		return errActionRequired
	}
	if _, err := s.enforcer.RemovePolicy(normalizedRole, NormalizeObject(object), normalizedAction); err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return nil
}

// GetRolePolicies 查询角色直接持有的策略
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	normalizedRole, err := s.requireRole(role)
	if err != nil {
		return nil, err
	}
	return s.policiesOwnedBy(normalizedRole)
}

func (s *Service) policiesOwnedBy(subject string) ([]Policy, error) {
	rules, err := s.enforcer.GetFilteredPolicy(0, subject)
	if err != nil {
		return nil, fmt.Errorf("get policies for %s failed: %w", subject, err)
	}
	return policiesFromRules(rules), nil
}

// SetAdminRoles 覆盖设置管理员的角色集合（重复项只写入一次）
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return errAdminIDRequired
	}
	if err := s.ready(); err != nil {
		return err
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear admin roles failed: %w", err)
	}

	assigned := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalizedRole, err := s.EnsureRole(role)
		if err != nil {
			return err
		}
		if _, dup := assigned[normalizedRole]; dup {
			continue
		}
		assigned[normalizedRole] = struct{}{}
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, normalizedRole); err != nil {
			return fmt.Errorf("assign admin role failed: %w", err)
		}
	}
	return nil
}

// GetAdminRoles 查询管理员持有的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, errAdminIDRequired
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	assigned, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles failed: %w", err)
	}
	roleSet := make(map[string]struct{}, len(assigned))
	for _, role := range assigned {
		if strings.HasPrefix(role, rolePrefix) && role != roleAnchor {
			roleSet[role] = struct{}{}
		}
	}
	return sortedKeys(roleSet), nil
}

// GetAdminPolicies 查询管理员的生效策略（直连策略与角色策略去重合并）
func (s *Service) GetAdminPolicies(adminID uint) ([]Policy, error) {
	roles, err := s.GetAdminRoles(adminID)
	if err != nil {
		return nil, err
	}
	owners := append([]string{SubjectForAdmin(adminID)}, roles...)

	merged := map[string]Policy{}
	for _, owner := range owners {
		policies, err := s.policiesOwnedBy(owner)
		if err != nil {
			return nil, err
		}
		for _, item := range policies {
			merged[policyKey(item)] = item
		}
	}

	result := make([]Policy, 0, len(merged))
	for _, item := range merged {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return policyKey(result[i]) < policyKey(result[j])
	})
	return result, nil
}

func policiesFromRules(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SubjectForAdmin 生成管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return "admin:" + strconv.FormatUint(uint64(adminID), 10)
}

// NormalizeRole 规范化角色名（补 role: 前缀，空格转下划线）
func NormalizeRole(role string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(role), " ", "_")
	name := strings.TrimPrefix(cleaned, rolePrefix)
	if name == "" {
		return "", errRoleRequired
	}
	return rolePrefix + name, nil
}

// NormalizeObject 规范化资源路径（剥离 /api/v1 前缀，补前导斜杠）
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if rest, ok := strings.CutPrefix(normalized, apiV1Prefix); ok {
		if rest == "" {
			return "/"
		}
		if strings.HasPrefix(rest, "/") {
			return rest
		}
	}
	return normalized
}

// NormalizeAction 规范化动作（HTTP 方法统一大写）
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
