package admin

import (
	"github.com/dujiao-next/newsletter-tracker/internal/authz"
	handlershared "github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RoleView 角色及其直连策略
type RoleView struct {
	Role     string         `json:"role"`
	Policies []authz.Policy `json:"policies"`
}

// profileCapabilities 后台界面按钮对应的受控操作
var profileCapabilities = []struct {
	Name   string
	Object string
	Action string
}{
	{"soft_delete", "/admin/subscribers/:id", "DELETE"},
	{"restore", "/admin/subscribers/:id/restore", "POST"},
	{"sync", "/admin/subscribers/:id/sync", "POST"},
	{"purge", "/admin/subscribers/:id/permanent", "DELETE"},
}

// GetRoles 列出内置角色矩阵
func (h *Handler) GetRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	views := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		policies, err := h.AuthzService.GetRolePolicies(role)
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		views = append(views, RoleView{Role: role, Policies: policies})
	}
	response.Success(c, views)
}

// roleCapabilities 计算角色可执行的后台操作
func (h *Handler) roleCapabilities(c *gin.Context, role string) map[string]bool {
	capabilities := make(map[string]bool, len(profileCapabilities))
	for _, capability := range profileCapabilities {
		allowed, err := h.AuthzService.EnforceRole(role, capability.Object, capability.Action)
		if err != nil {
			handlershared.RequestLog(c).Warnw("admin_capability_check_failed", "role", role, "capability", capability.Name, "error", err)
			allowed = false
		}
		capabilities[capability.Name] = allowed
	}
	return capabilities
}
