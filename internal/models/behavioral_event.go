package models

import "time"

// BehavioralEvent 访客行为事件
type BehavioralEvent struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	SubscriberID uint      `gorm:"index;not null" json:"subscriber_id"`
	SessionID    string    `gorm:"type:varchar(128);index" json:"session_id"`
	EventType    string    `gorm:"type:varchar(64);index;not null" json:"event_type"`
	EventData    JSON      `gorm:"type:json" json:"event_data"`
	PageURL      string    `gorm:"type:text" json:"page_url"`
	PageTitle    string    `gorm:"type:text" json:"page_title"`
	Referrer     string    `gorm:"type:text" json:"referrer"`
	Timestamp    time.Time `gorm:"column:occurred_at;index" json:"timestamp"`
}

// TableName 指定表名
func (BehavioralEvent) TableName() string {
	return "behavioral_events"
}
