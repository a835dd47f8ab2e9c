package models

// SubscriberSummary 列表页使用的订阅者概要
type SubscriberSummary struct {
	Subscriber
	BehavioralEventsCount int64  `json:"behavioral_events_count"`
	PageViewsCount        int64  `json:"page_views_count"`
	Country               string `json:"country"`
	Region                string `json:"region"`
	City                  string `json:"city"`
	DeviceType            string `json:"device_type"`
	Browser               string `json:"browser"`
}

// SubscriberDetail 订阅者详情，事件与浏览记录按时间倒序
type SubscriberDetail struct {
	Subscriber       Subscriber              `json:"subscriber"`
	DeviceLocation   *DeviceLocationSnapshot `json:"device_location"`
	BehavioralEvents []BehavioralEvent       `json:"behavioral_events"`
	PageViews        []PageView              `json:"page_views"`
}

// SubscriberStats 订阅者统计
type SubscriberStats struct {
	TotalSubscribers   int64 `json:"total_subscribers"`
	ActiveSubscribers  int64 `json:"active_subscribers"`
	TrashedSubscribers int64 `json:"trashed_subscribers"`
	TotalEvents        int64 `json:"total_events"`
	TotalPageViews     int64 `json:"total_page_views"`
}
