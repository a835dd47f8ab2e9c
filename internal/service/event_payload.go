package service

import (
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/models"

	"github.com/goccy/go-json"
)

const (
	defaultMaxPayloadKeys  = 64
	defaultMaxPayloadBytes = 16 * 1024
	maxPayloadDepth        = 4
)

// normalizeEventData 把任意 eventData 归一为有界的键值映射
//
// 旧版客户端发送 JSON.stringify 后的字符串，可解析为对象时按对象处理，否则包装为 {"value": ...}。
func normalizeEventData(raw interface{}, maxKeys, maxBytes int) (models.JSON, error) {
	if maxKeys <= 0 {
		maxKeys = defaultMaxPayloadKeys
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxPayloadBytes
	}

	var data models.JSON
	switch v := raw.(type) {
	case nil:
		return models.JSON{}, nil
	case models.JSON:
		data = v
	case map[string]interface{}:
		data = models.JSON(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return models.JSON{}, nil
		}
		var decoded map[string]interface{}
		if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &decoded) == nil {
			data = models.JSON(decoded)
		} else {
			data = models.JSON{"value": v}
		}
	default:
		data = models.JSON{"value": v}
	}

	if len(data) > maxKeys {
		return nil, newValidationError("eventData", "error.event_data_too_large")
	}
	for _, value := range data {
		if !isBoundedValue(value, 1) {
			return nil, newValidationError("eventData", "error.event_data_invalid")
		}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, newValidationError("eventData", "error.event_data_invalid")
	}
	if len(encoded) > maxBytes {
		return nil, newValidationError("eventData", "error.event_data_too_large")
	}
	return data, nil
}

func isBoundedValue(value interface{}, depth int) bool {
	switch v := value.(type) {
	case nil, string, bool, float64, float32, int, int64, int32, uint, uint64, json.Number:
		return true
	case map[string]interface{}:
		if depth >= maxPayloadDepth {
			return false
		}
		for _, item := range v {
			if !isBoundedValue(item, depth+1) {
				return false
			}
		}
		return true
	case []interface{}:
		if depth >= maxPayloadDepth {
			return false
		}
		for _, item := range v {
			if !isBoundedValue(item, depth+1) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
