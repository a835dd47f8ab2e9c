package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/models"

	"gorm.io/gorm"
)

// errPurgeRaced 事务内父记录已不在回收站，用于触发回滚
var errPurgeRaced = errors.New("subscriber left trash during purge")

// GormSubscriberStore 关系型实现（sqlite / postgres）
type GormSubscriberStore struct {
	db *gorm.DB
}

// NewGormSubscriberStore 创建关系型订阅者存储
func NewGormSubscriberStore(db *gorm.DB) *GormSubscriberStore {
	return &GormSubscriberStore{db: db}
}

// AddSubscriber 创建订阅者
func (r *GormSubscriberStore) AddSubscriber(ctx context.Context, subscriber *models.Subscriber) error {
	if err := prepareSubscriber(subscriber); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createSubscriberTx(tx, subscriber)
	})
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// AddSubscriberWithHistory 单事务写入订阅者、快照与缓冲事件
func (r *GormSubscriberStore) AddSubscriberWithHistory(ctx context.Context, subscriber *models.Subscriber, snapshot *models.DeviceLocationSnapshot, events []*models.BehavioralEvent) error {
	if err := prepareHistory(subscriber, snapshot, events); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := createSubscriberTx(tx, subscriber); err != nil {
			return err
		}
		if snapshot != nil {
			snapshot.SubscriberID = subscriber.ID
			if err := tx.Create(snapshot).Error; err != nil {
				return err
			}
		}
		for _, event := range events {
			event.SubscriberID = subscriber.ID
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		resetHistoryIDs(subscriber, snapshot, events)
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// createSubscriberTx 事务内按邮箱（含回收站）判重后写入
func createSubscriberTx(tx *gorm.DB, subscriber *models.Subscriber) error {
	var count int64
	if err := tx.Unscoped().Model(&models.Subscriber{}).Where("email = ?", subscriber.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateEmail
	}
	return tx.Create(subscriber).Error
}

// GetSubscriberByEmail 按邮箱查找（包含回收站）
func (r *GormSubscriberStore) GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	var subscriber models.Subscriber
	if err := r.db.WithContext(ctx).Unscoped().Where("email = ?", normalized).First(&subscriber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

// GetSubscriberByID 按 ID 查找（包含回收站）
func (r *GormSubscriberStore) GetSubscriberByID(ctx context.Context, id uint) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.WithContext(ctx).Unscoped().First(&subscriber, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

// AddBehavioralEvent 写入行为事件
func (r *GormSubscriberStore) AddBehavioralEvent(ctx context.Context, event *models.BehavioralEvent) error {
	if err := prepareEvent(event); err != nil {
		return err
	}
	return r.createChild(ctx, event.SubscriberID, event)
}

// AddDeviceLocationSnapshot 写入设备位置快照
func (r *GormSubscriberStore) AddDeviceLocationSnapshot(ctx context.Context, snapshot *models.DeviceLocationSnapshot) error {
	if snapshot == nil {
		return errors.New("device location snapshot is nil")
	}
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = time.Now()
	}
	return r.createChild(ctx, snapshot.SubscriberID, snapshot)
}

// AddPageView 写入页面浏览
func (r *GormSubscriberStore) AddPageView(ctx context.Context, view *models.PageView) error {
	if view == nil {
		return errors.New("page view is nil")
	}
	if view.Timestamp.IsZero() {
		view.Timestamp = time.Now()
	}
	return r.createChild(ctx, view.SubscriberID, view)
}

// createChild 在同一事务内校验父记录存在后写入子记录
func (r *GormSubscriberStore) createChild(ctx context.Context, subscriberID uint, record interface{}) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.Subscriber{}).Where("id = ?", subscriberID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrSubscriberMissing
		}
		return tx.Create(record).Error
	})
}

// ListActiveSubscribersWithCounts 活跃订阅者列表
func (r *GormSubscriberStore) ListActiveSubscribersWithCounts(ctx context.Context, filter SubscriberListFilter) ([]models.SubscriberSummary, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Subscriber{})
	return r.listWithCounts(ctx, query, filter, "created_at DESC, id DESC")
}

// ListTrashedSubscribersWithCounts 回收站列表
func (r *GormSubscriberStore) ListTrashedSubscribersWithCounts(ctx context.Context, filter SubscriberListFilter) ([]models.SubscriberSummary, int64, error) {
	query := r.db.WithContext(ctx).Unscoped().Model(&models.Subscriber{}).Where("deleted_at IS NOT NULL")
	return r.listWithCounts(ctx, query, filter, "deleted_at DESC, id DESC")
}

func (r *GormSubscriberStore) listWithCounts(ctx context.Context, query *gorm.DB, filter SubscriberListFilter, orderBy string) ([]models.SubscriberSummary, int64, error) {
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"email", "first_name"})
		query = query.Where("("+condition+")", repeatLikeArgs(containsLikePattern(search), argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subscribers []models.Subscriber
	if err := applyPagination(query, filter.Page, filter.PageSize).Order(orderBy).Find(&subscribers).Error; err != nil {
		return nil, 0, err
	}
	if len(subscribers) == 0 {
		return []models.SubscriberSummary{}, total, nil
	}

	ids := make([]uint, 0, len(subscribers))
	for _, s := range subscribers {
		ids = append(ids, s.ID)
	}
	eventCounts, err := r.countBySubscriber(ctx, &models.BehavioralEvent{}, ids)
	if err != nil {
		return nil, 0, err
	}
	viewCounts, err := r.countBySubscriber(ctx, &models.PageView{}, ids)
	if err != nil {
		return nil, 0, err
	}
	var snapshots []models.DeviceLocationSnapshot
	if err := r.db.WithContext(ctx).Where("subscriber_id IN ?", ids).Order("id ASC").Find(&snapshots).Error; err != nil {
		return nil, 0, err
	}
	latest := make(map[uint]models.DeviceLocationSnapshot, len(snapshots))
	for _, snap := range snapshots {
		latest[snap.SubscriberID] = snap
	}

	summaries := make([]models.SubscriberSummary, 0, len(subscribers))
	for _, s := range subscribers {
		summaries = append(summaries, buildSummary(s, eventCounts[s.ID], viewCounts[s.ID], latest[s.ID]))
	}
	return summaries, total, nil
}

type subscriberCountRow struct {
	SubscriberID uint
	Total        int64
}

func (r *GormSubscriberStore) countBySubscriber(ctx context.Context, model interface{}, ids []uint) (map[uint]int64, error) {
	var rows []subscriberCountRow
	err := r.db.WithContext(ctx).Model(model).
		Select("subscriber_id, COUNT(*) AS total").
		Where("subscriber_id IN ?", ids).
		Group("subscriber_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, row := range rows {
		out[row.SubscriberID] = row.Total
	}
	return out, nil
}

// ListPendingSubscribers 待对账的活跃订阅者，按创建时间升序
func (r *GormSubscriberStore) ListPendingSubscribers(ctx context.Context, limit int) ([]models.Subscriber, error) {
	var subscribers []models.Subscriber
	query := r.db.WithContext(ctx).
		Where("subscription_status = ?", constants.SubscriptionStatusPending).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&subscribers).Error; err != nil {
		return nil, err
	}
	return subscribers, nil
}

// SoftDelete 移入回收站，仅对活跃记录生效
func (r *GormSubscriberStore) SoftDelete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Subscriber{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Restore 从回收站恢复，仅对已删除记录生效
func (r *GormSubscriberStore) Restore(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Unscoped().Model(&models.Subscriber{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Updates(map[string]interface{}{
			"deleted_at": nil,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// PermanentlyDelete 彻底删除回收站中的订阅者及其全部子记录，整体在一个事务内完成
func (r *GormSubscriberStore) PermanentlyDelete(ctx context.Context, id uint) (bool, error) {
	purged := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&models.Subscriber{}).
			Where("id = ? AND deleted_at IS NOT NULL", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		for _, child := range []interface{}{
			&models.BehavioralEvent{},
			&models.DeviceLocationSnapshot{},
			&models.PageView{},
		} {
			if err := tx.Where("subscriber_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		result := tx.Unscoped().Where("id = ? AND deleted_at IS NOT NULL", id).Delete(&models.Subscriber{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errPurgeRaced
		}
		purged = true
		return nil
	})
	if errors.Is(err, errPurgeRaced) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return purged, nil
}

// UpdateSubscriptionStatus 更新订阅状态，与回收站状态无关
func (r *GormSubscriberStore) UpdateSubscriptionStatus(ctx context.Context, id uint, status string) (bool, error) {
	if !constants.IsValidSubscriptionStatus(status) {
		return false, ErrInvalidStatus
	}
	result := r.db.WithContext(ctx).Unscoped().Model(&models.Subscriber{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_status": status,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetSubscriberDetail 订阅者详情
func (r *GormSubscriberStore) GetSubscriberDetail(ctx context.Context, id uint) (*models.SubscriberDetail, error) {
	subscriber, err := r.GetSubscriberByID(ctx, id)
	if err != nil || subscriber == nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	detail := &models.SubscriberDetail{Subscriber: *subscriber}

	var snapshot models.DeviceLocationSnapshot
	if err := db.Where("subscriber_id = ?", id).Order("id DESC").First(&snapshot).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else {
		detail.DeviceLocation = &snapshot
	}

	if err := db.Where("subscriber_id = ?", id).Order("occurred_at DESC, id DESC").Find(&detail.BehavioralEvents).Error; err != nil {
		return nil, err
	}
	if err := db.Where("subscriber_id = ?", id).Order("viewed_at DESC, id DESC").Find(&detail.PageViews).Error; err != nil {
		return nil, err
	}
	if detail.BehavioralEvents == nil {
		detail.BehavioralEvents = []models.BehavioralEvent{}
	}
	if detail.PageViews == nil {
		detail.PageViews = []models.PageView{}
	}
	return detail, nil
}

// Stats 订阅者统计
func (r *GormSubscriberStore) Stats(ctx context.Context) (*models.SubscriberStats, error) {
	db := r.db.WithContext(ctx)
	stats := &models.SubscriberStats{}
	if err := db.Model(&models.Subscriber{}).Count(&stats.ActiveSubscribers).Error; err != nil {
		return nil, err
	}
	if err := db.Unscoped().Model(&models.Subscriber{}).Where("deleted_at IS NOT NULL").Count(&stats.TrashedSubscribers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.BehavioralEvent{}).Count(&stats.TotalEvents).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.PageView{}).Count(&stats.TotalPageViews).Error; err != nil {
		return nil, err
	}
	stats.TotalSubscribers = stats.ActiveSubscribers + stats.TrashedSubscribers
	return stats, nil
}

// Ping 检查连接
func (r *GormSubscriberStore) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接
func (r *GormSubscriberStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func buildSummary(s models.Subscriber, events, views int64, snap models.DeviceLocationSnapshot) models.SubscriberSummary {
	return models.SubscriberSummary{
		Subscriber:            s,
		BehavioralEventsCount: events,
		PageViewsCount:        views,
		Country:               snap.Country,
		Region:                snap.Region,
		City:                  snap.City,
		DeviceType:            snap.DeviceType,
		Browser:               snap.Browser,
	}
}
