package shared

import (
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminClaimsContextKey 鉴权中间件写入的管理员声明
const AdminClaimsContextKey = "admin_claims"

// GetAdminClaims 从上下文读取管理员声明并统一处理错误响应。
func GetAdminClaims(c *gin.Context) (*service.AdminClaims, bool) {
	value, exists := c.Get(AdminClaimsContextKey)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return nil, false
	}
	claims, ok := value.(*service.AdminClaims)
	if !ok || claims == nil {
		RespondError(c, response.CodeInternal, "error.internal", nil)
		return nil, false
	}
	return claims, true
}
