package shared

import (
	"errors"

	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/i18n"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// RespondValidationError 返回 400，data.field 指出出错的字段
func RespondValidationError(c *gin.Context, validationErr *service.ValidationError) {
	msg := i18n.T(i18n.ResolveLocale(c), validationErr.Key)
	response.ErrorWithData(c, response.CodeBadRequest, msg, gin.H{"field": validationErr.Field})
}

// RespondWithMappedError 按规则顺序匹配业务错误，未命中时使用兜底响应并记录原始错误。
// 校验错误优先使用其自带的消息键。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) && validationErr.Key != "" {
		RespondValidationError(c, validationErr)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}
