package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const (
	// MaxStoredPageViews 本地最多保留的页面浏览数
	MaxStoredPageViews = 50
	// MaxStoredEvents 本地最多保留的行为事件数
	MaxStoredEvents = 100
	// DefaultPersistInterval 内存队列落盘周期
	DefaultPersistInterval = 5 * time.Second
)

// Entry 已捕获、尚未投递的行为事件
type Entry struct {
	Seq       uint64                 `json:"seq"`
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	PageURL   string                 `json:"pageUrl"`
	PageTitle string                 `json:"pageTitle,omitempty"`
	Timestamp int64                  `json:"timestamp"` // 毫秒
}

// PageViewEntry 待投递的页面浏览
type PageViewEntry struct {
	Seq       uint64 `json:"seq"`
	SessionID string `json:"sessionId"`
	PageURL   string `json:"pageUrl"`
	PageTitle string `json:"pageTitle"`
	TimeSpent int64  `json:"timeSpent"` // 毫秒
	Referrer  string `json:"referrer"`
	Timestamp int64  `json:"timestamp"`
}

// Snapshot 一次 drain 读出的本地内容
type Snapshot struct {
	PageViews []PageViewEntry
	Events    []Entry
	highWater uint64
}

// Empty 是否没有任何待投递内容
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.PageViews) == 0 && len(s.Events) == 0)
}

// EventCache 本地事件缓存：内存队列 + 有上限的持久化集合
//
// 事件先进入内存队列，FlushToLocalStorage 周期性地把新增部分追加到持久化集合；
// 页面浏览直接写入持久化集合。超出上限时丢弃最旧的记录。
type EventCache struct {
	mu      sync.Mutex
	store   LocalStore
	pending []Entry
	seq     uint64
	log     *zap.SugaredLogger
}

// NewEventCache 创建缓存，序号从已持久化内容的最大值继续
func NewEventCache(store LocalStore, log *zap.SugaredLogger) *EventCache {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	c := &EventCache{store: store, log: log}
	c.mu.Lock()
	defer c.mu.Unlock()
	if views, err := c.loadPageViews(); err == nil {
		for _, v := range views {
			if v.Seq > c.seq {
				c.seq = v.Seq
			}
		}
	}
	if events, err := c.loadEvents(); err == nil {
		for _, e := range events {
			if e.Seq > c.seq {
				c.seq = e.Seq
			}
		}
	}
	return c
}

// Append 加入内存队列，不做任何 I/O
func (c *EventCache) Append(entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	entry.Seq = c.seq
	c.pending = append(c.pending, entry)
	// 落盘持续失败时内存队列同样受上限约束
	if over := len(c.pending) - MaxStoredEvents; over > 0 {
		c.pending = append([]Entry(nil), c.pending[over:]...)
	}
}

// AppendPageView 页面浏览直接写入持久化集合，存储失败只记录日志；返回带序号的记录
func (c *EventCache) AppendPageView(view PageViewEntry) PageViewEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	view.Seq = c.seq
	views, err := c.loadPageViews()
	if err != nil {
		c.log.Warnw("tracker_page_view_load_failed", "error", err)
		return view
	}
	views = append(views, view)
	if over := len(views) - MaxStoredPageViews; over > 0 {
		views = views[over:]
	}
	if err := c.saveJSON(PageViewsKey, views); err != nil {
		c.log.Warnw("tracker_page_view_store_failed", "error", err)
	}
	return view
}

// LastSeq 最近分配的序号
func (c *EventCache) LastSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// FlushToLocalStorage 把内存队列追加到持久化集合并清空队列；失败时保留队列待下轮重试
func (c *EventCache) FlushToLocalStorage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return
	}
	stored, err := c.loadEvents()
	if err != nil {
		c.log.Warnw("tracker_events_load_failed", "error", err)
		return
	}
	merged := append(stored, c.pending...)
	if over := len(merged) - MaxStoredEvents; over > 0 {
		merged = merged[over:]
	}
	if err := c.saveJSON(BehavioralKey, merged); err != nil {
		c.log.Warnw("tracker_events_store_failed", "pending", len(c.pending), "error", err)
		return
	}
	c.pending = nil
}

// Run 按固定周期落盘，ctx 结束时做最后一次落盘后返回
func (c *EventCache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPersistInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.FlushToLocalStorage()
			return
		case <-ticker.C:
			c.FlushToLocalStorage()
		}
	}
}

// Pending 内存队列长度
func (c *EventCache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Drain 读出序号不超过 cutoff 的持久化页面浏览与事件（按捕获顺序），不删除
func (c *EventCache) Drain(cutoff uint64) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	views, err := c.loadPageViews()
	if err != nil {
		return nil, err
	}
	events, err := c.loadEvents()
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{highWater: cutoff}
	for _, v := range views {
		if v.Seq <= cutoff {
			snap.PageViews = append(snap.PageViews, v)
		}
	}
	for _, e := range events {
		if e.Seq <= cutoff {
			snap.Events = append(snap.Events, e)
		}
	}
	return snap, nil
}

// Clear 删除快照中已投递的记录；drain 期间新落盘的记录保留到下一次
func (c *EventCache) Clear(snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	views, err := c.loadPageViews()
	if err != nil {
		return err
	}
	events, err := c.loadEvents()
	if err != nil {
		return err
	}
	keptViews := views[:0]
	for _, v := range views {
		if v.Seq > snap.highWater {
			keptViews = append(keptViews, v)
		}
	}
	keptEvents := events[:0]
	for _, e := range events {
		if e.Seq > snap.highWater {
			keptEvents = append(keptEvents, e)
		}
	}
	if len(keptViews) == 0 && len(keptEvents) == 0 {
		return c.store.Delete(PageViewsKey, BehavioralKey)
	}
	if err := c.saveJSON(PageViewsKey, keptViews); err != nil {
		return err
	}
	return c.saveJSON(BehavioralKey, keptEvents)
}

func (c *EventCache) loadPageViews() ([]PageViewEntry, error) {
	raw, err := c.store.Get(PageViewsKey)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var views []PageViewEntry
	if err := json.Unmarshal(raw, &views); err != nil {
		// 损坏的集合直接丢弃，避免永久卡住
		c.log.Warnw("tracker_local_collection_corrupt", "key", PageViewsKey, "error", err)
		return nil, nil
	}
	return views, nil
}

func (c *EventCache) loadEvents() ([]Entry, error) {
	raw, err := c.store.Get(BehavioralKey)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var events []Entry
	if err := json.Unmarshal(raw, &events); err != nil {
		c.log.Warnw("tracker_local_collection_corrupt", "key", BehavioralKey, "error", err)
		return nil, nil
	}
	return events, nil
}

func (c *EventCache) saveJSON(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.Set(key, raw)
}
