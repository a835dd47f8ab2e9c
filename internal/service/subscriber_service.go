package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/directory"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/metrics"
	"github.com/dujiao-next/newsletter-tracker/internal/models"
	"github.com/dujiao-next/newsletter-tracker/internal/queue"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// DirectorySyncEnqueuer 投递订阅状态对账任务
type DirectorySyncEnqueuer interface {
	EnqueueSubscriberDirectorySync(payload queue.SubscriberDirectorySyncPayload, delay time.Duration) error
}

// BufferedEvent 客户端在身份确认前缓存的行为事件
type BufferedEvent struct {
	Type      string
	Data      interface{}
	PageURL   string
	PageTitle string
	Timestamp time.Time
}

// DeviceData 客户端上报的设备信息
type DeviceData struct {
	ScreenResolution string
	Viewport         string
	Timezone         string
	Language         string
	Platform         string
}

// LocationData 客户端上报的粗粒度位置
type LocationData struct {
	Country         string
	CountryCode     string
	Region          string
	City            string
	Timezone        string
	IP              string
	Postal          string
	DetectionMethod string
}

// SignupInput 订阅请求
type SignupInput struct {
	Email          string
	FirstName      string
	SessionID      string
	SectionID      string
	Source         string
	Captcha        CaptchaVerifyPayload
	ClientIP       string
	UserAgent      string
	Referrer       string
	PageURL        string
	PageTitle      string
	Device         DeviceData
	Location       LocationData
	BehavioralData []BufferedEvent
}

// SignupResult 订阅结果
type SignupResult struct {
	AlreadySubscribed bool
	NewSubscriber     bool
	SubscriberID      uint
	EventsStored      int
	EventsSkipped     int
}

// TrackEventInput 行为事件上报
type TrackEventInput struct {
	Email     string
	SessionID string
	EventType string
	EventData interface{}
	PageURL   string
	PageTitle string
	Referrer  string
	Timestamp time.Time
}

// TrackPageViewInput 页面浏览上报
type TrackPageViewInput struct {
	Email       string
	SessionID   string
	PageURL     string
	PageTitle   string
	TimeSpentMS int64
	Referrer    string
	Timestamp   time.Time
}

// DirectorySyncResult 目录对账结果
type DirectorySyncResult struct {
	Status       string
	Customer     *directory.Customer
	Updated      bool
	SubscriberID uint
}

// SubscriberService 采集端点业务：订阅、事件上报与状态对账
type SubscriberService struct {
	store     repository.SubscriberStore
	directory directory.Directory
	captcha   *CaptchaService
	syncQueue DirectorySyncEnqueuer
	tracking  config.TrackingConfig
	syncDelay time.Duration
}

// NewSubscriberService 创建订阅业务服务
func NewSubscriberService(store repository.SubscriberStore, dir directory.Directory, captcha *CaptchaService, syncQueue DirectorySyncEnqueuer, cfg *config.Config) *SubscriberService {
	if dir == nil {
		dir = directory.DisabledDirectory{}
	}
	svc := &SubscriberService{
		store:     store,
		directory: dir,
		captcha:   captcha,
		syncQueue: syncQueue,
	}
	if cfg != nil {
		svc.tracking = cfg.Tracking
		svc.syncDelay = time.Duration(cfg.Sync.DelaySeconds) * time.Second
	}
	return svc
}

// Signup 处理订阅请求
//
// 已存在的邮箱（含回收站）直接返回 AlreadySubscribed，不写入任何记录。
// 外部目录失败只记录日志，不影响本地订阅。
// 订阅者、设备快照与缓冲事件一次原子写入，失败后重试不会被误判为已订阅。
func (s *SubscriberService) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	email := models.NormalizeEmail(input.Email)
	firstName := strings.TrimSpace(input.FirstName)
	if email == "" || firstName == "" {
		metrics.Signups.WithLabelValues("invalid").Inc()
		return nil, newValidationError("email", "error.signup_required")
	}
	if !isValidEmail(email) {
		metrics.Signups.WithLabelValues("invalid").Inc()
		return nil, newValidationError("email", "error.email_invalid")
	}
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, constants.CaptchaSceneNewsletterSignup, input.Captcha, input.ClientIP); err != nil {
			metrics.Signups.WithLabelValues("invalid").Inc()
			return nil, err
		}
	}

	existing, err := s.store.GetSubscriberByEmail(ctx, email)
	if err != nil {
		metrics.Signups.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if existing != nil {
		metrics.Signups.WithLabelValues("already_subscribed").Inc()
		return &SignupResult{AlreadySubscribed: true, SubscriberID: existing.ID}, nil
	}

	subscriber := &models.Subscriber{
		Email:              email,
		FirstName:          firstName,
		SubscriptionStatus: constants.SubscriptionStatusPending,
		IPAddress:          strings.TrimSpace(input.ClientIP),
		UserAgent:          input.UserAgent,
		Referrer:           input.Referrer,
		Source:             strings.TrimSpace(input.Source),
		SectionID:          strings.TrimSpace(input.SectionID),
		SessionID:          strings.TrimSpace(input.SessionID),
	}
	if subscriber.Source == "" {
		subscriber.Source = constants.SubscriberSourceDefault
	}

	customer, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		logger.Warnw("signup_directory_lookup_failed", "email", email, "error", err)
		customer = nil
	}
	if customer != nil && s.directory.IsConfirmedSubscriber(customer) {
		subscriber.DirectoryCustomerID = customer.ID
		subscriber.SubscriptionStatus = constants.SubscriptionStatusConfirmed
		if err := s.store.AddSubscriber(ctx, subscriber); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return s.alreadySubscribed(ctx, email)
			}
			metrics.Signups.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
		metrics.Signups.WithLabelValues("already_subscribed").Inc()
		return &SignupResult{AlreadySubscribed: true, SubscriberID: subscriber.ID}, nil
	}

	if customer != nil {
		subscriber.DirectoryCustomerID = customer.ID
	} else {
		created, createErr := s.directory.Create(ctx, email, firstName)
		switch {
		case createErr == nil && created != nil:
			subscriber.DirectoryCustomerID = created.ID
		case errors.Is(createErr, directory.ErrDirectoryDisabled):
		case createErr != nil:
			logger.Warnw("signup_directory_create_failed", "email", email, "error", createErr)
		}
	}

	result := &SignupResult{NewSubscriber: true}
	events := s.bufferedEvents(subscriber, input.BehavioralData, result)
	if err := s.store.AddSubscriberWithHistory(ctx, subscriber, buildSnapshot(input), events); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return s.alreadySubscribed(ctx, email)
		}
		metrics.Signups.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	result.SubscriberID = subscriber.ID
	result.EventsStored = len(events)
	for _, event := range events {
		metrics.EventsIngested.WithLabelValues(event.EventType).Inc()
	}

	s.enqueueDirectorySync(subscriber)
	metrics.Signups.WithLabelValues("new").Inc()
	logger.Infow("signup_completed",
		"subscriber_id", subscriber.ID,
		"events_stored", result.EventsStored,
		"events_skipped", result.EventsSkipped,
	)
	return result, nil
}

// alreadySubscribed 并发注册落败时回查已有记录的 ID
func (s *SubscriberService) alreadySubscribed(ctx context.Context, email string) (*SignupResult, error) {
	existing, err := s.store.GetSubscriberByEmail(ctx, email)
	if err != nil {
		metrics.Signups.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	metrics.Signups.WithLabelValues("already_subscribed").Inc()
	result := &SignupResult{AlreadySubscribed: true}
	if existing != nil {
		result.SubscriberID = existing.ID
	}
	return result, nil
}

// bufferedEvents 过滤并规范化缓冲事件，非法条目计入 EventsSkipped
func (s *SubscriberService) bufferedEvents(subscriber *models.Subscriber, buffered []BufferedEvent, result *SignupResult) []*models.BehavioralEvent {
	events := make([]*models.BehavioralEvent, 0, len(buffered))
	for idx, item := range buffered {
		eventType := strings.TrimSpace(item.Type)
		if !constants.IsValidEventType(eventType) {
			metrics.EventsRejected.WithLabelValues("invalid_type").Inc()
			logger.Warnw("signup_buffered_event_skipped", "email", subscriber.Email, "index", idx, "event_type", eventType)
			result.EventsSkipped++
			continue
		}
		data, err := normalizeEventData(item.Data, s.tracking.MaxPayloadKeys, s.tracking.MaxPayloadBytes)
		if err != nil {
			metrics.EventsRejected.WithLabelValues("invalid_payload").Inc()
			logger.Warnw("signup_buffered_event_skipped", "email", subscriber.Email, "index", idx, "event_type", eventType, "error", err)
			result.EventsSkipped++
			continue
		}
		events = append(events, &models.BehavioralEvent{
			SessionID: subscriber.SessionID,
			EventType: eventType,
			EventData: data,
			PageURL:   item.PageURL,
			PageTitle: item.PageTitle,
			Timestamp: timestampOrNow(item.Timestamp),
		})
	}
	return events
}

func (s *SubscriberService) enqueueDirectorySync(subscriber *models.Subscriber) {
	if s.syncQueue == nil {
		return
	}
	if _, disabled := s.directory.(directory.DisabledDirectory); disabled {
		return
	}
	payload := queue.SubscriberDirectorySyncPayload{SubscriberID: subscriber.ID, Email: subscriber.Email}
	if err := s.syncQueue.EnqueueSubscriberDirectorySync(payload, s.syncDelay); err != nil {
		logger.Warnw("signup_directory_sync_enqueue_failed", "subscriber_id", subscriber.ID, "error", err)
	}
}

// TrackEvent 记录一条行为事件，未知邮箱返回 ErrSubscriberNotFound
func (s *SubscriberService) TrackEvent(ctx context.Context, input TrackEventInput) error {
	email := models.NormalizeEmail(input.Email)
	eventType := strings.TrimSpace(input.EventType)
	if email == "" || eventType == "" {
		metrics.EventsRejected.WithLabelValues("missing_fields").Inc()
		return newValidationError("eventType", "error.track_event_required")
	}
	if !constants.IsValidEventType(eventType) {
		metrics.EventsRejected.WithLabelValues("invalid_type").Inc()
		return newValidationError("eventType", "error.event_type_invalid")
	}
	data, err := normalizeEventData(input.EventData, s.tracking.MaxPayloadKeys, s.tracking.MaxPayloadBytes)
	if err != nil {
		metrics.EventsRejected.WithLabelValues("invalid_payload").Inc()
		return err
	}

	subscriber, err := s.requireSubscriber(ctx, email)
	if err != nil {
		return err
	}
	event := &models.BehavioralEvent{
		SubscriberID: subscriber.ID,
		SessionID:    strings.TrimSpace(input.SessionID),
		EventType:    eventType,
		EventData:    data,
		PageURL:      input.PageURL,
		PageTitle:    input.PageTitle,
		Referrer:     input.Referrer,
		Timestamp:    timestampOrNow(input.Timestamp),
	}
	if err := s.store.AddBehavioralEvent(ctx, event); err != nil {
		return mapChildStoreError(err)
	}
	metrics.EventsIngested.WithLabelValues(eventType).Inc()
	return nil
}

// TrackPageView 记录一次页面浏览
func (s *SubscriberService) TrackPageView(ctx context.Context, input TrackPageViewInput) error {
	email := models.NormalizeEmail(input.Email)
	pageURL := strings.TrimSpace(input.PageURL)
	if email == "" || pageURL == "" {
		metrics.EventsRejected.WithLabelValues("missing_fields").Inc()
		return newValidationError("pageUrl", "error.track_page_view_required")
	}
	subscriber, err := s.requireSubscriber(ctx, email)
	if err != nil {
		return err
	}
	timeSpent := input.TimeSpentMS
	if timeSpent < 0 {
		timeSpent = 0
	}
	view := &models.PageView{
		SubscriberID: subscriber.ID,
		SessionID:    strings.TrimSpace(input.SessionID),
		PageURL:      pageURL,
		PageTitle:    input.PageTitle,
		TimeSpentMS:  timeSpent,
		Referrer:     input.Referrer,
		Timestamp:    timestampOrNow(input.Timestamp),
	}
	if err := s.store.AddPageView(ctx, view); err != nil {
		return mapChildStoreError(err)
	}
	metrics.PageViewsIngested.Inc()
	return nil
}

// UpdateSubscriptionStatus 按邮箱更新订阅状态，返回是否找到并更新
func (s *SubscriberService) UpdateSubscriptionStatus(ctx context.Context, email, status string) (bool, error) {
	email = models.NormalizeEmail(email)
	status = strings.ToLower(strings.TrimSpace(status))
	if email == "" || status == "" {
		return false, newValidationError("status", "error.status_update_required")
	}
	if !constants.IsValidSubscriptionStatus(status) {
		return false, newValidationError("status", "error.status_invalid")
	}
	subscriber, err := s.store.GetSubscriberByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if subscriber == nil {
		return false, nil
	}
	updated, err := s.store.UpdateSubscriptionStatus(ctx, subscriber.ID, status)
	metrics.SubscriberLifecycle.WithLabelValues("status_update", metrics.LifecycleOutcome(updated, err)).Inc()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return updated, nil
}

// SyncDirectoryStatus 以外部目录为准同步订阅状态
func (s *SubscriberService) SyncDirectoryStatus(ctx context.Context, email string) (*DirectorySyncResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, newValidationError("email", "error.email_required")
	}
	customer, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		metrics.StatusSyncRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if customer == nil {
		metrics.StatusSyncRuns.WithLabelValues("not_found").Inc()
		return nil, ErrDirectoryCustomerNotFound
	}

	status := constants.SubscriptionStatusPending
	if s.directory.IsConfirmedSubscriber(customer) {
		status = constants.SubscriptionStatusConfirmed
	}
	result := &DirectorySyncResult{Status: status, Customer: customer}

	subscriber, err := s.store.GetSubscriberByEmail(ctx, email)
	if err != nil {
		metrics.StatusSyncRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if subscriber == nil {
		metrics.StatusSyncRuns.WithLabelValues("unchanged").Inc()
		return result, nil
	}
	result.SubscriberID = subscriber.ID
	if subscriber.SubscriptionStatus == status {
		metrics.StatusSyncRuns.WithLabelValues("unchanged").Inc()
		return result, nil
	}
	updated, err := s.store.UpdateSubscriptionStatus(ctx, subscriber.ID, status)
	if err != nil {
		metrics.StatusSyncRuns.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	result.Updated = updated
	metrics.StatusSyncRuns.WithLabelValues("updated").Inc()
	return result, nil
}

// ReconcilePending 批量对账仍为 pending 的订阅者，返回更新数量
func (s *SubscriberService) ReconcilePending(ctx context.Context, limit int) (int, error) {
	if _, disabled := s.directory.(directory.DisabledDirectory); disabled {
		return 0, nil
	}
	pending, err := s.store.ListPendingSubscribers(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	updated := 0
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		result, syncErr := s.SyncDirectoryStatus(ctx, pending[i].Email)
		if syncErr != nil {
			if errors.Is(syncErr, ErrDirectoryCustomerNotFound) {
				continue
			}
			logger.Warnw("reconcile_pending_sync_failed", "subscriber_id", pending[i].ID, "error", syncErr)
			if errors.Is(syncErr, ErrDirectoryUnavailable) {
				// 目录不可用时后续请求也会失败
				return updated, nil
			}
			continue
		}
		if result.Updated {
			updated++
		}
	}
	return updated, nil
}

func (s *SubscriberService) requireSubscriber(ctx context.Context, email string) (*models.Subscriber, error) {
	subscriber, err := s.store.GetSubscriberByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if subscriber == nil {
		metrics.EventsRejected.WithLabelValues("unknown_subscriber").Inc()
		return nil, ErrSubscriberNotFound
	}
	return subscriber, nil
}

func mapChildStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrInvalidEventType):
		metrics.EventsRejected.WithLabelValues("invalid_type").Inc()
		return newValidationError("eventType", "error.event_type_invalid")
	case errors.Is(err, repository.ErrSubscriberMissing):
		metrics.EventsRejected.WithLabelValues("unknown_subscriber").Inc()
		return ErrSubscriberNotFound
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

func buildSnapshot(input SignupInput) *models.DeviceLocationSnapshot {
	ua := ParseUserAgent(input.UserAgent)
	ip := strings.TrimSpace(input.Location.IP)
	if ip == "" {
		ip = strings.TrimSpace(input.ClientIP)
	}
	return &models.DeviceLocationSnapshot{
		ScreenResolution: input.Device.ScreenResolution,
		Viewport:         input.Device.Viewport,
		Timezone:         input.Device.Timezone,
		Language:         input.Device.Language,
		Platform:         input.Device.Platform,
		UserAgent:        input.UserAgent,
		DeviceType:       ua.DeviceType,
		Browser:          ua.Browser,
		OperatingSystem:  ua.OperatingSystem,
		Country:          input.Location.Country,
		CountryCode:      input.Location.CountryCode,
		Region:           input.Location.Region,
		City:             input.Location.City,
		LocationTimezone: input.Location.Timezone,
		IPAddress:        ip,
		Postal:           input.Location.Postal,
		DetectionMethod:  input.Location.DetectionMethod,
		PageURL:          input.PageURL,
		PageTitle:        input.PageTitle,
		PageReferrer:     input.Referrer,
		CapturedAt:       time.Now(),
	}
}

// isValidEmail 复用 gin 绑定层的校验引擎，规则与 binding:"email" 一致
func isValidEmail(email string) bool {
	validate, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return false
	}
	return validate.Var(email, "required,email") == nil
}

func timestampOrNow(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now()
	}
	return ts
}
