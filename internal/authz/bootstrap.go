package authz

import (
	"fmt"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.AdminRoleViewer,
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
				{Object: "/admin/logout", Action: "POST"},
			},
		},
		{
			Role:     constants.AdminRoleOperator,
			Inherits: []string{constants.AdminRoleViewer},
			Policies: []Policy{
				{Object: "/admin/subscribers/:id", Action: "DELETE"},
				{Object: "/admin/subscribers/:id/restore", Action: "POST"},
				{Object: "/admin/subscribers/:id/sync", Action: "POST"},
				{Object: "/admin/subscribers/bulk-delete", Action: "POST"},
				{Object: "/admin/subscribers/bulk-restore", Action: "POST"},
				{Object: "/admin/subscribers/bulk-sync", Action: "POST"},
			},
		},
		{
			Role:     constants.AdminRoleAdmin,
			Inherits: []string{constants.AdminRoleOperator},
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
