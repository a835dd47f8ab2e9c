package shared

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP 解析访客真实 IP
// 优先级：X-Forwarded-For 首跳、X-Real-IP、CF-Connecting-IP、连接地址
func ClientIP(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	candidates := []string{
		firstForwardedHop(c.GetHeader("X-Forwarded-For")),
		c.GetHeader("X-Real-IP"),
		c.GetHeader("CF-Connecting-IP"),
		remoteHost(c.Request.RemoteAddr),
	}
	for _, candidate := range candidates {
		if ip := normalizeIP(candidate); ip != "" {
			return ip
		}
	}
	return ""
}

func firstForwardedHop(header string) string {
	if header == "" {
		return ""
	}
	first, _, _ := strings.Cut(header, ",")
	return first
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func normalizeIP(raw string) string {
	ip := strings.TrimSpace(raw)
	if ip == "" {
		return ""
	}
	ip = strings.TrimPrefix(ip, "::ffff:")
	if ip == "::1" {
		return "127.0.0.1"
	}
	return ip
}
