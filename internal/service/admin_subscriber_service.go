package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/cache"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/metrics"
	"github.com/dujiao-next/newsletter-tracker/internal/models"
	"github.com/dujiao-next/newsletter-tracker/internal/queue"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"
)

const (
	statsCacheKey = "subscriber:stats"
	statsCacheTTL = 30 * time.Second
	// MaxBulkSize 单次批量操作上限
	MaxBulkSize = 500
)

// 生命周期操作名，同时用作指标标签
const (
	OperationSoftDelete = "soft_delete"
	OperationRestore    = "restore"
	OperationPurge      = "purge"
	OperationSync       = "directory_sync"
)

// BulkItemResult 批量操作单项结果
type BulkItemResult struct {
	SubscriberID uint   `json:"subscriberId"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
}

// BulkResult 批量操作汇总
type BulkResult struct {
	Operation      string
	ProcessedCount int
	TotalRequested int
	Results        []BulkItemResult
	Errors         []BulkItemResult
}

// AdminSubscriberService 管理端订阅者查询与生命周期操作
type AdminSubscriberService struct {
	store       repository.SubscriberStore
	subscribers *SubscriberService
	syncQueue   DirectorySyncEnqueuer
}

// NewAdminSubscriberService 创建管理端订阅者服务
func NewAdminSubscriberService(store repository.SubscriberStore, subscribers *SubscriberService, syncQueue DirectorySyncEnqueuer) *AdminSubscriberService {
	return &AdminSubscriberService{
		store:       store,
		subscribers: subscribers,
		syncQueue:   syncQueue,
	}
}

// ListActive 活跃订阅者列表
func (s *AdminSubscriberService) ListActive(ctx context.Context, filter repository.SubscriberListFilter) ([]models.SubscriberSummary, int64, error) {
	items, total, err := s.store.ListActiveSubscribersWithCounts(ctx, normalizeListFilter(filter))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return items, total, nil
}

// ListTrashed 回收站列表
func (s *AdminSubscriberService) ListTrashed(ctx context.Context, filter repository.SubscriberListFilter) ([]models.SubscriberSummary, int64, error) {
	items, total, err := s.store.ListTrashedSubscribersWithCounts(ctx, normalizeListFilter(filter))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return items, total, nil
}

// Stats 订阅者统计，启用 Redis 缓存时短暂缓存
func (s *AdminSubscriberService) Stats(ctx context.Context) (*models.SubscriberStats, error) {
	var cached models.SubscriberStats
	if hit, err := cache.GetJSON(ctx, statsCacheKey, &cached); err != nil {
		logger.Debugw("subscriber_stats_cache_read_failed", "error", err)
	} else if hit {
		return &cached, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := cache.SetJSON(ctx, statsCacheKey, stats, statsCacheTTL); err != nil {
		logger.Debugw("subscriber_stats_cache_write_failed", "error", err)
	}
	return stats, nil
}

// Detail 订阅者详情，已彻底删除或不存在返回 ErrSubscriberNotFound
func (s *AdminSubscriberService) Detail(ctx context.Context, id uint) (*models.SubscriberDetail, error) {
	detail, err := s.store.GetSubscriberDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if detail == nil {
		return nil, ErrSubscriberNotFound
	}
	return detail, nil
}

// SoftDelete 移入回收站，返回是否生效
func (s *AdminSubscriberService) SoftDelete(ctx context.Context, id uint) (bool, error) {
	return s.apply(ctx, OperationSoftDelete, id, s.store.SoftDelete)
}

// Restore 从回收站恢复
func (s *AdminSubscriberService) Restore(ctx context.Context, id uint) (bool, error) {
	return s.apply(ctx, OperationRestore, id, s.store.Restore)
}

// Purge 彻底删除回收站中的订阅者及其全部子记录
func (s *AdminSubscriberService) Purge(ctx context.Context, id uint) (bool, error) {
	return s.apply(ctx, OperationPurge, id, s.store.PermanentlyDelete)
}

func (s *AdminSubscriberService) apply(ctx context.Context, operation string, id uint, fn func(context.Context, uint) (bool, error)) (bool, error) {
	applied, err := fn(ctx, id)
	metrics.SubscriberLifecycle.WithLabelValues(operation, metrics.LifecycleOutcome(applied, err)).Inc()
	if err != nil {
		logger.Errorw("subscriber_lifecycle_failed", "operation", operation, "subscriber_id", id, "error", err)
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if applied {
		s.invalidateStats(ctx)
		logger.Infow("subscriber_lifecycle_applied", "operation", operation, "subscriber_id", id)
	}
	return applied, nil
}

// BulkSoftDelete 批量移入回收站
func (s *AdminSubscriberService) BulkSoftDelete(ctx context.Context, ids []uint) (*BulkResult, error) {
	return s.bulk(ctx, OperationSoftDelete, ids, s.SoftDelete)
}

// BulkRestore 批量恢复
func (s *AdminSubscriberService) BulkRestore(ctx context.Context, ids []uint) (*BulkResult, error) {
	return s.bulk(ctx, OperationRestore, ids, s.Restore)
}

// BulkPurge 批量彻底删除
func (s *AdminSubscriberService) BulkPurge(ctx context.Context, ids []uint) (*BulkResult, error) {
	return s.bulk(ctx, OperationPurge, ids, s.Purge)
}

// BulkSync 批量对账：启用队列时投递任务，否则同步执行
func (s *AdminSubscriberService) BulkSync(ctx context.Context, ids []uint) (*BulkResult, error) {
	return s.bulk(ctx, OperationSync, ids, s.syncOne)
}

func (s *AdminSubscriberService) syncOne(ctx context.Context, id uint) (bool, error) {
	subscriber, err := s.store.GetSubscriberByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if subscriber == nil {
		return false, nil
	}
	if s.syncQueue != nil {
		payload := queue.SubscriberDirectorySyncPayload{SubscriberID: subscriber.ID, Email: subscriber.Email}
		if err := s.syncQueue.EnqueueSubscriberDirectorySync(payload, 0); err != nil {
			return false, err
		}
		return true, nil
	}
	if s.subscribers == nil {
		return false, ErrDirectoryUnavailable
	}
	if _, err := s.subscribers.SyncDirectoryStatus(ctx, subscriber.Email); err != nil {
		return false, err
	}
	return true, nil
}

// bulk 逐项执行，单项失败不影响其余项
func (s *AdminSubscriberService) bulk(ctx context.Context, operation string, ids []uint, fn func(context.Context, uint) (bool, error)) (*BulkResult, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, newValidationError("subscriberIds", "error.subscriber_ids_required")
	}
	if len(ids) > MaxBulkSize {
		return nil, newValidationError("subscriberIds", "error.subscriber_ids_too_many")
	}

	result := &BulkResult{
		Operation:      operation,
		TotalRequested: len(ids),
		Results:        make([]BulkItemResult, 0, len(ids)),
		Errors:         []BulkItemResult{},
	}
	for _, id := range ids {
		item := BulkItemResult{SubscriberID: id}
		applied, err := fn(ctx, id)
		switch {
		case err != nil:
			item.Error = err.Error()
			result.Errors = append(result.Errors, item)
		case applied:
			item.OK = true
			result.ProcessedCount++
		default:
			item.Error = "not applicable in current state"
		}
		result.Results = append(result.Results, item)
	}
	logger.Infow("subscriber_bulk_completed",
		"operation", operation,
		"processed", result.ProcessedCount,
		"requested", result.TotalRequested,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *AdminSubscriberService) invalidateStats(ctx context.Context) {
	if err := cache.Del(ctx, statsCacheKey); err != nil {
		logger.Debugw("subscriber_stats_cache_invalidate_failed", "error", err)
	}
}

func normalizeListFilter(filter repository.SubscriberListFilter) repository.SubscriberListFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	filter.Search = strings.TrimSpace(filter.Search)
	return filter
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
