package admin

import (
	"context"
	"strings"

	handlershared "github.com/dujiao-next/newsletter-tracker/internal/http/handlers/shared"
	"github.com/dujiao-next/newsletter-tracker/internal/http/response"
	"github.com/dujiao-next/newsletter-tracker/internal/i18n"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"
	"github.com/dujiao-next/newsletter-tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// BulkSubscriberRequest 批量操作请求
type BulkSubscriberRequest struct {
	SubscriberIDs []uint `json:"subscriberIds"`
}

// GetSubscribers 活跃订阅者列表
func (h *Handler) GetSubscribers(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	items, total, err := h.AdminSubscriberService.ListActive(c.Request.Context(), repository.SubscriberListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

// GetTrashedSubscribers 回收站列表
func (h *Handler) GetTrashedSubscribers(c *gin.Context) {
	page, pageSize := handlershared.QueryPagination(c)
	items, total, err := h.AdminSubscriberService.ListTrashed(c.Request.Context(), repository.SubscriberListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(page, pageSize, total))
}

// GetSubscriberStats 订阅者统计
func (h *Handler) GetSubscriberStats(c *gin.Context) {
	stats, err := h.AdminSubscriberService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, stats)
}

// GetSubscriber 订阅者详情（含设备快照、事件与浏览记录）
func (h *Handler) GetSubscriber(c *gin.Context) {
	id, ok := parseSubscriberID(c)
	if !ok {
		return
	}
	detail, err := h.AdminSubscriberService.Detail(c.Request.Context(), id)
	if err != nil {
		respondSubscriberError(c, err, "error.internal")
		return
	}
	response.Success(c, detail)
}

// DeleteSubscriber 移入回收站
func (h *Handler) DeleteSubscriber(c *gin.Context) {
	id, ok := parseSubscriberID(c)
	if !ok {
		return
	}
	applied, err := h.AdminSubscriberService.SoftDelete(c.Request.Context(), id)
	if err != nil {
		respondSubscriberError(c, err, "error.internal")
		return
	}
	if !applied {
		respondError(c, response.CodeNotFound, "error.soft_delete_not_applied", nil)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.soft_deleted"), nil)
}

// RestoreSubscriber 从回收站恢复
func (h *Handler) RestoreSubscriber(c *gin.Context) {
	id, ok := parseSubscriberID(c)
	if !ok {
		return
	}
	applied, err := h.AdminSubscriberService.Restore(c.Request.Context(), id)
	if err != nil {
		respondSubscriberError(c, err, "error.internal")
		return
	}
	if !applied {
		respondError(c, response.CodeNotFound, "error.trash_not_found", nil)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.restored"), nil)
}

// PurgeSubscriber 彻底删除回收站中的订阅者及其全部关联数据
func (h *Handler) PurgeSubscriber(c *gin.Context) {
	id, ok := parseSubscriberID(c)
	if !ok {
		return
	}
	applied, err := h.AdminSubscriberService.Purge(c.Request.Context(), id)
	if err != nil {
		respondSubscriberError(c, err, "error.internal")
		return
	}
	if !applied {
		respondError(c, response.CodeNotFound, "error.trash_not_found", nil)
		return
	}
	response.SuccessWithMsg(c, i18n.T(i18n.ResolveLocale(c), "message.purged"), nil)
}

// SyncSubscriber 单个订阅者目录对账
func (h *Handler) SyncSubscriber(c *gin.Context) {
	id, ok := parseSubscriberID(c)
	if !ok {
		return
	}
	result, err := h.AdminSubscriberService.BulkSync(c.Request.Context(), []uint{id})
	if err != nil {
		respondSubscriberError(c, err, "error.internal")
		return
	}
	if result.ProcessedCount == 0 {
		if len(result.Errors) > 0 {
			respondError(c, response.CodeInternal, "error.directory_unavailable", nil)
			return
		}
		respondError(c, response.CodeNotFound, "error.subscriber_not_found", nil)
		return
	}
	h.respondBulk(c, "message.bulk_synced", result)
}

// BulkDeleteSubscribers 批量移入回收站
func (h *Handler) BulkDeleteSubscribers(c *gin.Context) {
	h.runBulk(c, h.AdminSubscriberService.BulkSoftDelete, "message.bulk_soft_deleted")
}

// BulkRestoreSubscribers 批量恢复
func (h *Handler) BulkRestoreSubscribers(c *gin.Context) {
	h.runBulk(c, h.AdminSubscriberService.BulkRestore, "message.bulk_restored")
}

// BulkPurgeSubscribers 批量彻底删除
func (h *Handler) BulkPurgeSubscribers(c *gin.Context) {
	h.runBulk(c, h.AdminSubscriberService.BulkPurge, "message.bulk_purged")
}

// BulkSyncSubscribers 批量目录对账
func (h *Handler) BulkSyncSubscribers(c *gin.Context) {
	h.runBulk(c, h.AdminSubscriberService.BulkSync, "message.bulk_synced")
}

type bulkFunc func(ctx context.Context, ids []uint) (*service.BulkResult, error)

func (h *Handler) runBulk(c *gin.Context, fn bulkFunc, messageKey string) {
	var req BulkSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.subscriber_ids_required", nil)
		return
	}
	result, err := fn(c.Request.Context(), req.SubscriberIDs)
	if err != nil {
		respondSubscriberError(c, err, "error.internal")
		return
	}
	h.respondBulk(c, messageKey, result)
}

func (h *Handler) respondBulk(c *gin.Context, messageKey string, result *service.BulkResult) {
	msg := i18n.Sprintf(i18n.ResolveLocale(c), messageKey, result.ProcessedCount)
	response.SuccessWithFields(c, msg, gin.H{
		"operation":      result.Operation,
		"processedCount": result.ProcessedCount,
		"totalRequested": result.TotalRequested,
		"results":        result.Results,
		"errors":         result.Errors,
	})
}
