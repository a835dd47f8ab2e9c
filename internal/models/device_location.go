package models

import "time"

// DeviceLocationSnapshot 注册时采集的设备与位置信息
type DeviceLocationSnapshot struct {
	ID           uint `gorm:"primarykey" json:"id"`
	SubscriberID uint `gorm:"index;not null" json:"subscriber_id"`

	// 设备
	ScreenResolution string `gorm:"type:varchar(32)" json:"screen_resolution"`
	Viewport         string `gorm:"type:varchar(32)" json:"viewport"`
	Timezone         string `gorm:"type:varchar(64)" json:"timezone"`
	Language         string `gorm:"type:varchar(32)" json:"language"`
	Platform         string `gorm:"type:varchar(64)" json:"platform"`
	UserAgent        string `gorm:"type:text" json:"user_agent"`
	DeviceType       string `gorm:"type:varchar(16)" json:"device_type"`
	Browser          string `gorm:"type:varchar(32)" json:"browser"`
	OperatingSystem  string `gorm:"type:varchar(32)" json:"operating_system"`

	// 位置
	Country          string `gorm:"type:varchar(64)" json:"country"`
	CountryCode      string `gorm:"type:varchar(8)" json:"country_code"`
	Region           string `gorm:"type:varchar(64)" json:"region"`
	City             string `gorm:"type:varchar(64)" json:"city"`
	LocationTimezone string `gorm:"type:varchar(64)" json:"location_timezone"`
	IPAddress        string `gorm:"type:varchar(64)" json:"ip_address"`
	Postal           string `gorm:"type:varchar(32)" json:"postal"`
	DetectionMethod  string `gorm:"type:varchar(32)" json:"detection_method"`

	// 页面
	PageURL      string    `gorm:"type:text" json:"page_url"`
	PageTitle    string    `gorm:"type:text" json:"page_title"`
	PageReferrer string    `gorm:"type:text" json:"page_referrer"`
	CapturedAt   time.Time `json:"captured_at"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (DeviceLocationSnapshot) TableName() string {
	return "device_location_snapshots"
}
