package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/models"
)

// SubscriberListFilter 订阅者列表过滤条件
type SubscriberListFilter struct {
	Page     int
	PageSize int
	Search   string
}

// SubscriberStore 订阅者聚合的存储能力，关系型与 Redis 两种实现行为一致
//
// 生命周期：Active(deleted_at 为空) -> Trashed -> Purged。
// SoftDelete/Restore/PermanentlyDelete 仅在源状态合法时生效并返回 true，否则返回 false。
type SubscriberStore interface {
	// AddSubscriber 创建订阅者并回填 ID，邮箱重复返回 ErrDuplicateEmail
	AddSubscriber(ctx context.Context, subscriber *models.Subscriber) error
	// AddSubscriberWithHistory 原子写入订阅者、首个设备快照（可为 nil）与缓冲事件，失败时不留下任何记录
	AddSubscriberWithHistory(ctx context.Context, subscriber *models.Subscriber, snapshot *models.DeviceLocationSnapshot, events []*models.BehavioralEvent) error
	// GetSubscriberByEmail 忽略大小写查找，包含回收站中的记录；不存在返回 nil
	GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	GetSubscriberByID(ctx context.Context, id uint) (*models.Subscriber, error)
	AddBehavioralEvent(ctx context.Context, event *models.BehavioralEvent) error
	AddDeviceLocationSnapshot(ctx context.Context, snapshot *models.DeviceLocationSnapshot) error
	AddPageView(ctx context.Context, view *models.PageView) error
	ListActiveSubscribersWithCounts(ctx context.Context, filter SubscriberListFilter) ([]models.SubscriberSummary, int64, error)
	ListTrashedSubscribersWithCounts(ctx context.Context, filter SubscriberListFilter) ([]models.SubscriberSummary, int64, error)
	ListPendingSubscribers(ctx context.Context, limit int) ([]models.Subscriber, error)
	SoftDelete(ctx context.Context, id uint) (bool, error)
	Restore(ctx context.Context, id uint) (bool, error)
	PermanentlyDelete(ctx context.Context, id uint) (bool, error)
	UpdateSubscriptionStatus(ctx context.Context, id uint, status string) (bool, error)
	// GetSubscriberDetail 不存在（含已彻底删除）返回 nil
	GetSubscriberDetail(ctx context.Context, id uint) (*models.SubscriberDetail, error)
	Stats(ctx context.Context) (*models.SubscriberStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// prepareSubscriber 规范化邮箱并补齐默认状态
func prepareSubscriber(subscriber *models.Subscriber) error {
	if subscriber == nil {
		return errors.New("subscriber is nil")
	}
	subscriber.Email = models.NormalizeEmail(subscriber.Email)
	if subscriber.SubscriptionStatus == "" {
		subscriber.SubscriptionStatus = constants.SubscriptionStatusPending
	}
	if !constants.IsValidSubscriptionStatus(subscriber.SubscriptionStatus) {
		return ErrInvalidStatus
	}
	return nil
}

// prepareEvent 校验事件类型并补齐时间与载荷
func prepareEvent(event *models.BehavioralEvent) error {
	if event == nil {
		return errors.New("behavioral event is nil")
	}
	if !constants.IsValidEventType(event.EventType) {
		return fmt.Errorf("%w: %s", ErrInvalidEventType, event.EventType)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.EventData == nil {
		event.EventData = models.JSON{}
	}
	return nil
}

// prepareHistory 批量写入前的统一校验，任一事件非法则整批拒绝
func prepareHistory(subscriber *models.Subscriber, snapshot *models.DeviceLocationSnapshot, events []*models.BehavioralEvent) error {
	if err := prepareSubscriber(subscriber); err != nil {
		return err
	}
	for _, event := range events {
		if err := prepareEvent(event); err != nil {
			return err
		}
	}
	if snapshot != nil && snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now()
	}
	return nil
}

// resetHistoryIDs 写入失败后清空已回填的 ID
func resetHistoryIDs(subscriber *models.Subscriber, snapshot *models.DeviceLocationSnapshot, events []*models.BehavioralEvent) {
	subscriber.ID = 0
	if snapshot != nil {
		snapshot.ID = 0
	}
	for _, event := range events {
		event.ID = 0
	}
}
