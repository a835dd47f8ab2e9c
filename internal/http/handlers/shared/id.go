package shared

import (
	"strconv"
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ParseIDParam 解析路径中的正整数 ID，非法时直接写入 400 响应
func ParseIDParam(c *gin.Context, name, invalidKey string) (uint, bool) {
	rawID, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || rawID == 0 {
		RespondError(c, response.CodeBadRequest, invalidKey, nil)
		return 0, false
	}
	return uint(rawID), true
}
