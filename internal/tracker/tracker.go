// Package tracker 是店铺前台的访客行为采集客户端。
//
// 身份确认（注册成功）之前，捕获到的事件只写入本地缓存；确认之后先把本地历史
// 按捕获顺序投递一次，再对新事件实时上报。所有上报都是尽力而为，失败只记录日志。
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultSendTimeout = 10 * time.Second
	errorBufferSize    = 64
)

// Options 客户端选项
type Options struct {
	SessionID       string
	PersistInterval time.Duration
	SendTimeout     time.Duration
	Logger          *zap.SugaredLogger
}

// SignupInput 注册表单内容
type SignupInput struct {
	Email        string
	FirstName    string
	CaptchaToken string
	CaptchaID    string
	CaptchaCode  string
	DeviceData   map[string]interface{}
	LocationData map[string]interface{}
}

// Tracker 单个浏览上下文的采集客户端
type Tracker struct {
	sessionID       string
	cache           *EventCache
	capture         *Capture
	client          IngestionClient
	log             *zap.SugaredLogger
	sendTimeout     time.Duration
	persistInterval time.Duration

	mu       sync.Mutex
	identity string

	drainMu  sync.Mutex
	inflight sync.WaitGroup
	errs     chan error
}

// New 创建采集客户端
func New(store LocalStore, client IngestionClient, opts Options) *Tracker {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	sessionID := strings.TrimSpace(opts.SessionID)
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	cache := NewEventCache(store, log)
	return &Tracker{
		sessionID:       sessionID,
		cache:           cache,
		capture:         NewCapture(cache, log),
		client:          client,
		log:             log.With("session_id", sessionID),
		sendTimeout:     timeout,
		persistInterval: opts.PersistInterval,
		errs:            make(chan error, errorBufferSize),
	}
}

// NewSessionID 生成会话标识，格式 sess_<毫秒>_<随机串>
func NewSessionID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("sess_%d_%s", time.Now().UnixMilli(), random[:9])
}

// SessionID 会话标识
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// Identity 已确认的邮箱，未确认时为空
func (t *Tracker) Identity() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identity
}

// Capture 捕获层
func (t *Tracker) Capture() *Capture {
	return t.capture
}

// Cache 本地缓存
func (t *Tracker) Cache() *EventCache {
	return t.cache
}

// Errors 后台上报失败的错误，通道满时丢弃
func (t *Tracker) Errors() <-chan error {
	return t.errs
}

// Run 周期性落盘本地缓存，阻塞到 ctx 结束
func (t *Tracker) Run(ctx context.Context) {
	t.cache.Run(ctx, t.persistInterval)
}

// Track 记录自定义事件；已确认身份时额外实时上报这一条
func (t *Tracker) Track(eventType string, data map[string]interface{}) {
	// 捕获与读取身份在同一把锁内，保证一条事件要么进入 drain 要么实时上报
	t.mu.Lock()
	entry := t.capture.Track(eventType, data)
	email := t.identity
	t.mu.Unlock()
	if email == "" || entry.Type == "" {
		return
	}
	t.dispatch("track_event", func(ctx context.Context) error {
		return t.client.TrackEvent(ctx, t.eventRequest(email, entry))
	})
}

// ReportPageView 页面离开时记录停留时长；已确认身份时实时上报
func (t *Tracker) ReportPageView() {
	page := t.capture.CurrentPage()
	if page.URL == "" {
		return
	}
	now := time.Now()
	spent := int64(0)
	if start := t.capture.PageStart(); !start.IsZero() {
		spent = now.Sub(start).Milliseconds()
	}
	view := PageViewEntry{
		SessionID: t.sessionID,
		PageURL:   page.URL,
		PageTitle: page.Title,
		TimeSpent: spent,
		Referrer:  page.Referrer,
		Timestamp: now.UnixMilli(),
	}
	t.mu.Lock()
	view = t.cache.AppendPageView(view)
	email := t.identity
	t.mu.Unlock()
	if email == "" {
		return
	}
	t.dispatch("track_page_view", func(ctx context.Context) error {
		return t.client.TrackPageView(ctx, t.pageViewRequest(email, view))
	})
}

// Signup 提交注册；成功后确认身份并在后台投递本地历史
// 返回的错误只代表注册请求本身失败，历史投递的失败不会影响返回值
func (t *Tracker) Signup(ctx context.Context, input SignupInput) (*SignupResponse, error) {
	t.cache.FlushToLocalStorage()

	page := t.capture.CurrentPage()
	resp, err := t.client.Signup(ctx, SignupRequest{
		Email:          strings.TrimSpace(input.Email),
		FirstName:      strings.TrimSpace(input.FirstName),
		CaptchaToken:   input.CaptchaToken,
		CaptchaID:      input.CaptchaID,
		CaptchaCode:    input.CaptchaCode,
		SessionID:      t.sessionID,
		PageURL:        page.URL,
		PageTitle:      page.Title,
		BehavioralData: []Entry{},
		DeviceData:     input.DeviceData,
		LocationData:   input.LocationData,
	})
	if err != nil {
		t.log.Warnw("tracker_signup_failed", "error", err)
		return resp, err
	}
	if resp == nil || !resp.Success {
		return resp, nil
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	t.mu.Lock()
	t.identity = email
	// 确认身份之后捕获的记录不属于本次 drain
	cutoff := t.cache.LastSeq()
	t.mu.Unlock()

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		t.drain(email, cutoff)
	}()
	return resp, nil
}

// Wait 等待后台上报全部结束
func (t *Tracker) Wait() {
	t.inflight.Wait()
}

// drain 按捕获顺序投递本地历史（先页面浏览后事件），全部尝试后再清理
func (t *Tracker) drain(email string, cutoff uint64) {
	t.drainMu.Lock()
	defer t.drainMu.Unlock()

	// 注册请求期间捕获的事件仍在内存队列里
	t.cache.FlushToLocalStorage()
	snap, err := t.cache.Drain(cutoff)
	if err != nil {
		t.report("drain_load", err)
		return
	}
	if snap.Empty() {
		return
	}

	failed := 0
	for _, view := range snap.PageViews {
		if err := t.send(func(ctx context.Context) error {
			return t.client.TrackPageView(ctx, t.pageViewRequest(email, view))
		}); err != nil {
			failed++
			t.report("drain_page_view", err)
		}
	}
	for _, entry := range snap.Events {
		if err := t.send(func(ctx context.Context) error {
			return t.client.TrackEvent(ctx, t.eventRequest(email, entry))
		}); err != nil {
			failed++
			t.report("drain_event", err)
		}
	}

	if err := t.cache.Clear(snap); err != nil {
		t.report("drain_clear", err)
	}
	t.log.Infow("tracker_drain_completed",
		"page_views", len(snap.PageViews),
		"events", len(snap.Events),
		"failed", failed,
	)
}

func (t *Tracker) dispatch(op string, fn func(ctx context.Context) error) {
	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()
		if err := t.send(fn); err != nil {
			t.report(op, err)
		}
	}()
}

func (t *Tracker) send(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.sendTimeout)
	defer cancel()
	return fn(ctx)
}

func (t *Tracker) report(op string, err error) {
	t.log.Warnw("tracker_send_failed", "op", op, "error", err)
	select {
	case t.errs <- fmt.Errorf("%s: %w", op, err):
	default:
	}
}

func (t *Tracker) eventRequest(email string, entry Entry) TrackEventRequest {
	data := "{}"
	if len(entry.Data) > 0 {
		if raw, err := json.Marshal(entry.Data); err == nil {
			data = string(raw)
		}
	}
	return TrackEventRequest{
		Email:     email,
		SessionID: t.sessionID,
		EventType: entry.Type,
		EventData: data,
		PageURL:   entry.PageURL,
		PageTitle: entry.PageTitle,
		Timestamp: entry.Timestamp,
	}
}

func (t *Tracker) pageViewRequest(email string, view PageViewEntry) TrackPageViewRequest {
	sessionID := view.SessionID
	if sessionID == "" {
		sessionID = t.sessionID
	}
	return TrackPageViewRequest{
		Email:     email,
		SessionID: sessionID,
		PageURL:   view.PageURL,
		PageTitle: view.PageTitle,
		TimeSpent: view.TimeSpent,
		Referrer:  view.Referrer,
		Timestamp: view.Timestamp,
	}
}
