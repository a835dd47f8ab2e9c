package shared

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// ClientTime 客户端时间戳，兼容毫秒数字与 RFC3339 字符串
type ClientTime struct {
	time.Time
}

// UnmarshalJSON 解析失败时保持零值，由业务层回退为服务器时间
func (t *ClientTime) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	text := strings.Trim(string(raw), `"`)
	if text == "" {
		return nil
	}
	if ms, err := strconv.ParseFloat(text, 64); err == nil {
		if ms > 0 {
			t.Time = time.UnixMilli(int64(ms)).UTC()
		}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
		t.Time = parsed.UTC()
	}
	return nil
}
