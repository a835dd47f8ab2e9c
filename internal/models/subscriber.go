package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Subscriber 订阅者，行为事件、设备快照与页面浏览的聚合根
type Subscriber struct {
	ID                  uint           `gorm:"primarykey" json:"id"`
	Email               string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`      // 小写存储
	FirstName           string         `gorm:"type:varchar(255);not null" json:"first_name"`             // 名
	DirectoryCustomerID string         `gorm:"type:varchar(64);index" json:"directory_customer_id"`      // 外部目录客户 ID，可为空
	SubscriptionStatus  string         `gorm:"type:varchar(20);not null;index" json:"subscription_status"` // pending/confirmed/unsubscribed
	IPAddress           string         `gorm:"type:varchar(64)" json:"ip_address"`
	UserAgent           string         `gorm:"type:text" json:"user_agent"`
	Referrer            string         `gorm:"type:text" json:"referrer"`
	Source              string         `gorm:"type:varchar(64)" json:"source"`
	SectionID           string         `gorm:"type:varchar(128)" json:"section_id"`
	SessionID           string         `gorm:"type:varchar(128);index" json:"session_id"`
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"` // 回收站标记
}

// TableName 指定表名
func (Subscriber) TableName() string {
	return "subscribers"
}

// IsTrashed 是否在回收站
func (s *Subscriber) IsTrashed() bool {
	return s != nil && s.DeletedAt.Valid
}

// NormalizeEmail 邮箱统一小写并去除首尾空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
