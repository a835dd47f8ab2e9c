package shared

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QueryPagination 读取列表分页参数，page_size 缺省时兼容 limit
func QueryPagination(c *gin.Context) (int, int) {
	page := queryInt(c, "page")
	pageSize := queryInt(c, "page_size")
	if pageSize == 0 {
		pageSize = queryInt(c, "limit")
	}
	return NormalizePagination(page, pageSize)
}

// NormalizePagination 页码至少为 1，每页条数落在 [1, 100]
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return page, pageSize
}

func queryInt(c *gin.Context, name string) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
