package admin

import (
	"errors"
	"strings"
	"time"

	handlershared "github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/i18n"
	"github.com/dujiao-next/newsletter-tracker/internal/provider"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler 后台接口处理器，只服务登录与订阅者管理
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	session, err := h.AdminAuthService.Login(strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			requestLog(c).Warnw("admin_login_failed", "username", req.Username, "client_ip", handlershared.ClientIP(c))
			respondError(c, response.CodeUnauthorized, "error.invalid_credentials", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, LoginResponse{
		Token: session.Token,
		User: map[string]interface{}{
			"username": session.Username,
			"role":     session.Role,
		},
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// AdminLogout 注销当前令牌
func (h *Handler) AdminLogout(c *gin.Context) {
	claims, ok := handlershared.GetAdminClaims(c)
	if !ok {
		return
	}
	if err := h.AdminAuthService.Logout(c.Request.Context(), claims); err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.logged_out"), nil)
}

// AdminProfile 当前登录管理员
func (h *Handler) AdminProfile(c *gin.Context) {
	claims, ok := handlershared.GetAdminClaims(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{
		"username":     claims.Username,
		"role":         claims.Role,
		"capabilities": h.roleCapabilities(c, claims.Role),
	})
}
