package shared

import (
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/i18n"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.SW("request_id", id, "path", c.FullPath())
	}
	return logger.S()
}

// RespondError 按消息键返回国际化错误响应
// 带原始错误时记录日志：5xx 记 error，其余记 warn
func RespondError(c *gin.Context, code int, key string, err error) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	appErr := response.NewAppError(code, key, msg, err)
	if err != nil {
		log := RequestLog(c)
		if appErr.ServerSide() {
			log.Errorw("handler_error", "code", appErr.Code, "key", appErr.Key, "error", err)
		} else {
			log.Warnw("handler_rejected", "code", appErr.Code, "key", appErr.Key, "error", err)
		}
	}
	response.Error(c, appErr.Code, appErr.Message)
}
