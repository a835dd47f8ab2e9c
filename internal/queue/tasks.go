package queue

import (
	"encoding/json"
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSubscriberDirectorySync 订阅状态与外部目录对账任务
	TaskSubscriberDirectorySync = constants.TaskSubscriberDirectorySync
)

// SubscriberDirectorySyncPayload 对账任务载荷
type SubscriberDirectorySyncPayload struct {
	SubscriberID uint   `json:"subscriber_id"`
	Email        string `json:"email"`
}

// NewSubscriberDirectorySyncTask 创建对账任务
func NewSubscriberDirectorySyncTask(payload SubscriberDirectorySyncPayload) (*asynq.Task, error) {
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSubscriberDirectorySync, body), nil
}

// ParseSubscriberDirectorySyncPayload 解析对账任务载荷
func ParseSubscriberDirectorySyncPayload(task *asynq.Task) (SubscriberDirectorySyncPayload, error) {
	var payload SubscriberDirectorySyncPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
