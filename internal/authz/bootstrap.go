package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
// readonly_auditor 只读全站，其余角色在此之上叠加各自的写权限
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
			Immutable: true,
		},
		{
			// 推广运营：受理申请、审批、状态流转与资料维护
			Role:     "program_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/affiliates", Action: "*"},
				{Object: "/admin/affiliates/:id", Action: "*"},
				{Object: "/admin/affiliates/:id/approve", Action: "POST"},
				{Object: "/admin/affiliates/:id/reject", Action: "POST"},
				{Object: "/admin/affiliates/:id/deactivate", Action: "POST"},
				{Object: "/admin/affiliates/:id/reactivate", Action: "POST"},
				{Object: "/admin/affiliates/:id/profile", Action: "PUT"},
				{Object: "/admin/affiliates/:id/commission-rate", Action: "PUT"},
				{Object: "/admin/affiliates/:id/coupon-discount", Action: "PUT"},
			},
			Immutable: true,
		},
		{
			// 财务：佣金对账与打款登记
			Role:     "finance",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/affiliates/:id/stats", Action: "GET"},
				{Object: "/admin/affiliates/:id/orders", Action: "GET"},
				{Object: "/admin/affiliates/:id/payments", Action: "GET"},
				{Object: "/admin/affiliates/:id/payments", Action: "POST"},
			},
			Immutable: true,
		},
		{
			// 集成配置：推广计划参数、SMTP 与通知通道
			Role:     "integrations",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/affiliate-settings", Action: "*"},
				{Object: "/admin/smtp-settings", Action: "*"},
				{Object: "/admin/smtp-settings/test", Action: "POST"},
				{Object: "/admin/notifications/test", Action: "POST"},
			},
			Immutable: true,
		},
	}
}

// IsBuiltinRole 判断角色是否为系统预置角色（预置角色不可删除）
func IsBuiltinRole(role string) bool {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return false
	}
	return isBuiltinRole(normalized)
}

func isBuiltinRole(normalizedRole string) bool {
	for _, seed := range BuiltinRoleSeeds() {
		if !seed.Immutable {
			continue
		}
		if name, err := NormalizeRole(seed.Role); err == nil && name == normalizedRole {
			return true
		}
	}
	return false
}

// BootstrapBuiltinRoles 初始化预置角色、继承关系与默认策略
// 幂等：已存在的角色与策略不会重复写入
func (s *Service) BootstrapBuiltinRoles() error {
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			if err := s.GrantRolePolicy(role, policy.Object, policy.Action); err != nil {
				return fmt.Errorf("seed builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
