package metrics

import (
	"github.com/dujiao-next/newsletter-tracker/internal/constants"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 采集端点与生命周期相关指标，统一通过 /metrics 暴露
var (
	// EventsIngested 成功入库的行为事件
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_events_ingested_total",
			Help: "Behavioral events persisted, by event type",
		},
		[]string{"event_type"},
	)

	// EventsRejected 被拒绝的事件
	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_events_rejected_total",
			Help: "Tracking requests rejected, by reason",
		},
		[]string{"reason"},
	)

	// PageViewsIngested 成功入库的页面浏览
	PageViewsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_page_views_ingested_total",
			Help: "Page views persisted",
		},
	)

	// Signups 注册结果
	Signups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_signups_total",
			Help: "Newsletter signups, by outcome (new, already_subscribed, invalid, failed)",
		},
		[]string{"outcome"},
	)

	// DirectoryRequests 外部目录调用
	DirectoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_directory_requests_total",
			Help: "Customer directory calls, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// DirectoryBreakerState 熔断器状态（0=closed, 1=half-open, 2=open）
	DirectoryBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_directory_breaker_state",
			Help: "Customer directory circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// SubscriberLifecycle 软删除 / 恢复 / 彻底删除 / 状态变更
	SubscriberLifecycle = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_subscriber_lifecycle_total",
			Help: "Subscriber lifecycle operations, by operation and outcome (applied, skipped, failed)",
		},
		[]string{"operation", "outcome"},
	)

	// RateLimited 限流命中与限流器故障
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_rate_limited_total",
			Help: "Rate limiter decisions other than pass, by rule and outcome (limited, unavailable)",
		},
		[]string{"rule", "outcome"},
	)

	// StatusSyncRuns 订阅状态对账
	StatusSyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_status_sync_total",
			Help: "Directory status reconciliations, by outcome (updated, unchanged, not_found, failed)",
		},
		[]string{"outcome"},
	)
)

// 预建全部事件类型的序列，未出现过的类型也以 0 暴露
func init() {
	for _, eventType := range constants.EventTypes() {
		EventsIngested.WithLabelValues(eventType)
	}
}

// LifecycleOutcome 把生命周期操作结果转为标签值
func LifecycleOutcome(applied bool, err error) string {
	switch {
	case err != nil:
		return "failed"
	case applied:
		return "applied"
	default:
		return "skipped"
	}
}
