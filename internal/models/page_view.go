package models

import "time"

// PageView 页面浏览记录
type PageView struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	SubscriberID uint      `gorm:"index;not null" json:"subscriber_id"`
	SessionID    string    `gorm:"type:varchar(128);index" json:"session_id"`
	PageURL      string    `gorm:"type:text;not null" json:"page_url"`
	PageTitle    string    `gorm:"type:text" json:"page_title"`
	TimeSpentMS  int64     `gorm:"default:0" json:"time_spent_ms"`
	Referrer     string    `gorm:"type:text" json:"referrer"`
	Timestamp    time.Time `gorm:"column:viewed_at;index" json:"timestamp"`
}

// TableName 指定表名
func (PageView) TableName() string {
	return "page_views"
}
