package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/models"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Redis 文档后端的键布局：
//
//	{p}:seq:{kind}               自增序列，ID 单调且不复用
//	{p}:subscriber:{id}          订阅者 HASH
//	{p}:email:{email}            邮箱唯一索引 -> id
//	{p}:subscribers:active       活跃集合 ZSET(score=创建毫秒)
//	{p}:subscribers:trash        回收站集合 ZSET(score=删除毫秒)
//	{p}:subscriber:{id}:events   行为事件 LIST(JSON)
//	{p}:subscriber:{id}:views    页面浏览 LIST(JSON)
//	{p}:subscriber:{id}:devices  设备快照 LIST(JSON)
//
// 生命周期状态以成员所在的 ZSET 为准，所有状态迁移都在单个 Lua 脚本内完成。

var addSubscriberScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("HSET", KEYS[2], unpack(ARGV, 3))
redis.call("ZADD", KEYS[3], ARGV[2], ARGV[1])
return 1
`)

// ARGV: id, created_ms, snapshot JSON（可为空）, 事件数 n, n 条事件 JSON, 订阅者 HASH 字段
var addSubscriberWithHistoryScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
local n = tonumber(ARGV[4])
redis.call("SET", KEYS[1], ARGV[1])
redis.call("HSET", KEYS[2], unpack(ARGV, 5 + n))
redis.call("ZADD", KEYS[3], ARGV[2], ARGV[1])
if ARGV[3] ~= "" then
	redis.call("RPUSH", KEYS[4], ARGV[3])
end
if n > 0 then
	redis.call("RPUSH", KEYS[5], unpack(ARGV, 5, 4 + n))
end
return 1
`)

var appendChildScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
return 1
`)

var softDeleteScript = redis.NewScript(`
if redis.call("ZREM", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("ZADD", KEYS[2], ARGV[2], ARGV[1])
redis.call("HSET", KEYS[3], "deleted_at", ARGV[3], "updated_at", ARGV[3])
return 1
`)

var restoreScript = redis.NewScript(`
if redis.call("ZREM", KEYS[2], ARGV[1]) == 0 then
	return 0
end
local score = redis.call("HGET", KEYS[3], "created_ms")
if not score then
	score = ARGV[2]
end
redis.call("ZADD", KEYS[1], score, ARGV[1])
redis.call("HSET", KEYS[3], "deleted_at", "", "updated_at", ARGV[3])
return 1
`)

var purgeScript = redis.NewScript(`
if not redis.call("ZSCORE", KEYS[1], ARGV[1]) then
	return 0
end
redis.call("DEL", KEYS[3], KEYS[4], KEYS[5])
redis.call("DEL", KEYS[2])
redis.call("DEL", KEYS[6])
redis.call("ZREM", KEYS[1], ARGV[1])
return 1
`)

var updateStatusScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "subscription_status", ARGV[1], "updated_at", ARGV[2])
return 1
`)

// RedisSubscriberStore Redis 文档后端实现
type RedisSubscriberStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSubscriberStore 创建 Redis 订阅者存储
func NewRedisSubscriberStore(client *redis.Client, prefix string) *RedisSubscriberStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "nt"
	}
	return &RedisSubscriberStore{client: client, prefix: prefix}
}

func (r *RedisSubscriberStore) key(parts ...string) string {
	return r.prefix + ":" + strings.Join(parts, ":")
}

func (r *RedisSubscriberStore) subscriberKey(id uint) string {
	return r.key("subscriber", formatID(id))
}

func (r *RedisSubscriberStore) childKey(id uint, kind string) string {
	return r.key("subscriber", formatID(id), kind)
}

func (r *RedisSubscriberStore) emailKey(email string) string {
	return r.key("email", email)
}

func (r *RedisSubscriberStore) activeKey() string {
	return r.key("subscribers", "active")
}

func (r *RedisSubscriberStore) trashKey() string {
	return r.key("subscribers", "trash")
}

func (r *RedisSubscriberStore) nextID(ctx context.Context, kind string) (uint, error) {
	id, err := r.client.Incr(ctx, r.key("seq", kind)).Result()
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// AddSubscriber 创建订阅者
func (r *RedisSubscriberStore) AddSubscriber(ctx context.Context, subscriber *models.Subscriber) error {
	if err := prepareSubscriber(subscriber); err != nil {
		return err
	}
	id, err := r.nextID(ctx, "subscriber")
	if err != nil {
		return err
	}
	stampNewSubscriber(subscriber, id, time.Now())

	createdMS := strconv.FormatInt(subscriber.CreatedAt.UnixMilli(), 10)
	args := []interface{}{formatID(id), createdMS}
	args = append(args, subscriberToHash(subscriber, createdMS)...)

	created, err := addSubscriberScript.Run(ctx, r.client,
		[]string{r.emailKey(subscriber.Email), r.subscriberKey(id), r.activeKey()},
		args...,
	).Int()
	if err != nil {
		subscriber.ID = 0
		return err
	}
	if created == 0 {
		subscriber.ID = 0
		return ErrDuplicateEmail
	}
	return nil
}

// AddSubscriberWithHistory 预分配全部 ID 后由单个 Lua 脚本一次写入
func (r *RedisSubscriberStore) AddSubscriberWithHistory(ctx context.Context, subscriber *models.Subscriber, snapshot *models.DeviceLocationSnapshot, events []*models.BehavioralEvent) error {
	if err := prepareHistory(subscriber, snapshot, events); err != nil {
		return err
	}
	err := r.addSubscriberWithHistory(ctx, subscriber, snapshot, events)
	if err != nil {
		resetHistoryIDs(subscriber, snapshot, events)
	}
	return err
}

func (r *RedisSubscriberStore) addSubscriberWithHistory(ctx context.Context, subscriber *models.Subscriber, snapshot *models.DeviceLocationSnapshot, events []*models.BehavioralEvent) error {
	id, err := r.nextID(ctx, "subscriber")
	if err != nil {
		return err
	}
	now := time.Now()
	stampNewSubscriber(subscriber, id, now)

	snapshotPayload := ""
	if snapshot != nil {
		deviceID, err := r.nextID(ctx, "device")
		if err != nil {
			return err
		}
		snapshot.ID = deviceID
		snapshot.SubscriberID = id
		snapshot.CreatedAt = now
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		snapshotPayload = string(payload)
	}

	eventPayloads := make([]interface{}, 0, len(events))
	if len(events) > 0 {
		last, err := r.client.IncrBy(ctx, r.key("seq", "event"), int64(len(events))).Result()
		if err != nil {
			return err
		}
		first := uint(last) - uint(len(events)) + 1
		for i, event := range events {
			event.ID = first + uint(i)
			event.SubscriberID = id
			payload, err := json.Marshal(event)
			if err != nil {
				return err
			}
			eventPayloads = append(eventPayloads, string(payload))
		}
	}

	createdMS := strconv.FormatInt(subscriber.CreatedAt.UnixMilli(), 10)
	args := []interface{}{formatID(id), createdMS, snapshotPayload, len(events)}
	args = append(args, eventPayloads...)
	args = append(args, subscriberToHash(subscriber, createdMS)...)

	created, err := addSubscriberWithHistoryScript.Run(ctx, r.client,
		[]string{
			r.emailKey(subscriber.Email),
			r.subscriberKey(id),
			r.activeKey(),
			r.childKey(id, "devices"),
			r.childKey(id, "events"),
		},
		args...,
	).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return ErrDuplicateEmail
	}
	return nil
}

// stampNewSubscriber 回填新订阅者的 ID 与时间戳
func stampNewSubscriber(subscriber *models.Subscriber, id uint, now time.Time) {
	if subscriber.CreatedAt.IsZero() {
		subscriber.CreatedAt = now
	}
	subscriber.UpdatedAt = now
	subscriber.ID = id
}

// GetSubscriberByEmail 按邮箱查找（包含回收站）
func (r *RedisSubscriberStore) GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	normalized := models.NormalizeEmail(email)
	if normalized == "" {
		return nil, nil
	}
	raw, err := r.client.Get(ctx, r.emailKey(normalized)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt email index %s: %w", normalized, err)
	}
	return r.GetSubscriberByID(ctx, uint(id))
}

// GetSubscriberByID 按 ID 查找（包含回收站）
func (r *RedisSubscriberStore) GetSubscriberByID(ctx context.Context, id uint) (*models.Subscriber, error) {
	fields, err := r.client.HGetAll(ctx, r.subscriberKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return subscriberFromHash(fields)
}

// AddBehavioralEvent 写入行为事件
func (r *RedisSubscriberStore) AddBehavioralEvent(ctx context.Context, event *models.BehavioralEvent) error {
	if err := prepareEvent(event); err != nil {
		return err
	}
	id, err := r.nextID(ctx, "event")
	if err != nil {
		return err
	}
	event.ID = id
	if err := r.appendChild(ctx, event.SubscriberID, "events", event); err != nil {
		event.ID = 0
		return err
	}
	return nil
}

// AddDeviceLocationSnapshot 写入设备位置快照
func (r *RedisSubscriberStore) AddDeviceLocationSnapshot(ctx context.Context, snapshot *models.DeviceLocationSnapshot) error {
	if snapshot == nil {
		return errors.New("device location snapshot is nil")
	}
	now := time.Now()
	if snapshot.CapturedAt.IsZero() {
		snapshot.CapturedAt = now
	}
	snapshot.CreatedAt = now
	id, err := r.nextID(ctx, "device")
	if err != nil {
		return err
	}
	snapshot.ID = id
	if err := r.appendChild(ctx, snapshot.SubscriberID, "devices", snapshot); err != nil {
		snapshot.ID = 0
		return err
	}
	return nil
}

// AddPageView 写入页面浏览
func (r *RedisSubscriberStore) AddPageView(ctx context.Context, view *models.PageView) error {
	if view == nil {
		return errors.New("page view is nil")
	}
	if view.Timestamp.IsZero() {
		view.Timestamp = time.Now()
	}
	id, err := r.nextID(ctx, "view")
	if err != nil {
		return err
	}
	view.ID = id
	if err := r.appendChild(ctx, view.SubscriberID, "views", view); err != nil {
		view.ID = 0
		return err
	}
	return nil
}

func (r *RedisSubscriberStore) appendChild(ctx context.Context, subscriberID uint, kind string, record interface{}) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ok, err := appendChildScript.Run(ctx, r.client,
		[]string{r.subscriberKey(subscriberID), r.childKey(subscriberID, kind)},
		string(payload),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrSubscriberMissing
	}
	return nil
}

// ListActiveSubscribersWithCounts 活跃订阅者列表，按创建时间倒序
func (r *RedisSubscriberStore) ListActiveSubscribersWithCounts(ctx context.Context, filter SubscriberListFilter) ([]models.SubscriberSummary, int64, error) {
	return r.listWithCounts(ctx, r.activeKey(), filter)
}

// ListTrashedSubscribersWithCounts 回收站列表，按删除时间倒序
func (r *RedisSubscriberStore) ListTrashedSubscribersWithCounts(ctx context.Context, filter SubscriberListFilter) ([]models.SubscriberSummary, int64, error) {
	return r.listWithCounts(ctx, r.trashKey(), filter)
}

func (r *RedisSubscriberStore) listWithCounts(ctx context.Context, setKey string, filter SubscriberListFilter) ([]models.SubscriberSummary, int64, error) {
	members, err := r.client.ZRevRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return nil, 0, err
	}
	subscribers, err := r.loadSubscribers(ctx, members)
	if err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := subscribers[:0]
	for _, s := range subscribers {
		if search == "" || strings.Contains(s.Email, search) || strings.Contains(strings.ToLower(s.FirstName), search) {
			matched = append(matched, s)
		}
	}
	total := int64(len(matched))
	page := paginateSlice(matched, filter.Page, filter.PageSize)
	if len(page) == 0 {
		return []models.SubscriberSummary{}, total, nil
	}

	pipe := r.client.Pipeline()
	eventLens := make([]*redis.IntCmd, len(page))
	viewLens := make([]*redis.IntCmd, len(page))
	lastDevices := make([]*redis.StringCmd, len(page))
	for i, s := range page {
		eventLens[i] = pipe.LLen(ctx, r.childKey(s.ID, "events"))
		viewLens[i] = pipe.LLen(ctx, r.childKey(s.ID, "views"))
		lastDevices[i] = pipe.LIndex(ctx, r.childKey(s.ID, "devices"), -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, err
	}

	summaries := make([]models.SubscriberSummary, 0, len(page))
	for i, s := range page {
		var snap models.DeviceLocationSnapshot
		if raw, err := lastDevices[i].Result(); err == nil && raw != "" {
			if err := json.Unmarshal([]byte(raw), &snap); err != nil {
				return nil, 0, err
			}
		}
		summaries = append(summaries, buildSummary(s, eventLens[i].Val(), viewLens[i].Val(), snap))
	}
	return summaries, total, nil
}

func (r *RedisSubscriberStore) loadSubscribers(ctx context.Context, members []string) ([]models.Subscriber, error) {
	if len(members) == 0 {
		return []models.Subscriber{}, nil
	}
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, member := range members {
		cmds[i] = pipe.HGetAll(ctx, r.key("subscriber", member))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]models.Subscriber, 0, len(members))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		s, err := subscriberFromHash(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// ListPendingSubscribers 待对账的活跃订阅者，按创建时间升序
func (r *RedisSubscriberStore) ListPendingSubscribers(ctx context.Context, limit int) ([]models.Subscriber, error) {
	members, err := r.client.ZRange(ctx, r.activeKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	subscribers, err := r.loadSubscribers(ctx, members)
	if err != nil {
		return nil, err
	}
	out := make([]models.Subscriber, 0)
	for _, s := range subscribers {
		if s.SubscriptionStatus != constants.SubscriptionStatusPending {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// SoftDelete 移入回收站，仅对活跃记录生效
func (r *RedisSubscriberStore) SoftDelete(ctx context.Context, id uint) (bool, error) {
	now := time.Now()
	ok, err := softDeleteScript.Run(ctx, r.client,
		[]string{r.activeKey(), r.trashKey(), r.subscriberKey(id)},
		formatID(id), now.UnixMilli(), formatTime(now),
	).Int()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

// Restore 从回收站恢复，仅对已删除记录生效
func (r *RedisSubscriberStore) Restore(ctx context.Context, id uint) (bool, error) {
	now := time.Now()
	ok, err := restoreScript.Run(ctx, r.client,
		[]string{r.activeKey(), r.trashKey(), r.subscriberKey(id)},
		formatID(id), now.UnixMilli(), formatTime(now),
	).Int()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

// PermanentlyDelete 彻底删除回收站中的订阅者
//
// Redis 没有多语句回滚，脚本先删子记录再删父记录；
// 脚本执行中途出错会留下部分状态，按不一致处理并记录错误日志。
func (r *RedisSubscriberStore) PermanentlyDelete(ctx context.Context, id uint) (bool, error) {
	subscriber, err := r.GetSubscriberByID(ctx, id)
	if err != nil {
		return false, err
	}
	if subscriber == nil || !subscriber.IsTrashed() {
		return false, nil
	}
	ok, err := purgeScript.Run(ctx, r.client,
		[]string{
			r.trashKey(),
			r.subscriberKey(id),
			r.childKey(id, "events"),
			r.childKey(id, "views"),
			r.childKey(id, "devices"),
			r.emailKey(subscriber.Email),
		},
		formatID(id),
	).Int()
	if err != nil {
		if isScriptFailure(err) {
			logger.Errorw("subscriber_purge_inconsistent",
				"subscriber_id", id,
				"email", subscriber.Email,
				"error", err,
			)
			return false, fmt.Errorf("%w: subscriber %d: %v", ErrPurgeInconsistent, id, err)
		}
		return false, err
	}
	return ok == 1, nil
}

// UpdateSubscriptionStatus 更新订阅状态
func (r *RedisSubscriberStore) UpdateSubscriptionStatus(ctx context.Context, id uint, status string) (bool, error) {
	if !constants.IsValidSubscriptionStatus(status) {
		return false, ErrInvalidStatus
	}
	ok, err := updateStatusScript.Run(ctx, r.client,
		[]string{r.subscriberKey(id)},
		status, formatTime(time.Now()),
	).Int()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

// GetSubscriberDetail 订阅者详情
func (r *RedisSubscriberStore) GetSubscriberDetail(ctx context.Context, id uint) (*models.SubscriberDetail, error) {
	subscriber, err := r.GetSubscriberByID(ctx, id)
	if err != nil || subscriber == nil {
		return nil, err
	}
	detail := &models.SubscriberDetail{Subscriber: *subscriber}

	pipe := r.client.Pipeline()
	eventsCmd := pipe.LRange(ctx, r.childKey(id, "events"), 0, -1)
	viewsCmd := pipe.LRange(ctx, r.childKey(id, "views"), 0, -1)
	deviceCmd := pipe.LIndex(ctx, r.childKey(id, "devices"), -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	detail.BehavioralEvents = make([]models.BehavioralEvent, 0, len(eventsCmd.Val()))
	for _, raw := range eventsCmd.Val() {
		var event models.BehavioralEvent
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			return nil, err
		}
		detail.BehavioralEvents = append(detail.BehavioralEvents, event)
	}
	sort.SliceStable(detail.BehavioralEvents, func(i, j int) bool {
		a, b := detail.BehavioralEvents[i], detail.BehavioralEvents[j]
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID > b.ID
		}
		return a.Timestamp.After(b.Timestamp)
	})

	detail.PageViews = make([]models.PageView, 0, len(viewsCmd.Val()))
	for _, raw := range viewsCmd.Val() {
		var view models.PageView
		if err := json.Unmarshal([]byte(raw), &view); err != nil {
			return nil, err
		}
		detail.PageViews = append(detail.PageViews, view)
	}
	sort.SliceStable(detail.PageViews, func(i, j int) bool {
		a, b := detail.PageViews[i], detail.PageViews[j]
		if a.Timestamp.Equal(b.Timestamp) {
			return a.ID > b.ID
		}
		return a.Timestamp.After(b.Timestamp)
	})

	if raw, err := deviceCmd.Result(); err == nil && raw != "" {
		var snap models.DeviceLocationSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, err
		}
		detail.DeviceLocation = &snap
	}
	return detail, nil
}

// Stats 订阅者统计
func (r *RedisSubscriberStore) Stats(ctx context.Context) (*models.SubscriberStats, error) {
	active, err := r.client.ZRange(ctx, r.activeKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	trashed, err := r.client.ZRange(ctx, r.trashKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	stats := &models.SubscriberStats{
		ActiveSubscribers:  int64(len(active)),
		TrashedSubscribers: int64(len(trashed)),
	}
	stats.TotalSubscribers = stats.ActiveSubscribers + stats.TrashedSubscribers

	members := append(append([]string{}, active...), trashed...)
	if len(members) == 0 {
		return stats, nil
	}
	pipe := r.client.Pipeline()
	events := make([]*redis.IntCmd, len(members))
	views := make([]*redis.IntCmd, len(members))
	for i, member := range members {
		events[i] = pipe.LLen(ctx, r.key("subscriber", member, "events"))
		views[i] = pipe.LLen(ctx, r.key("subscriber", member, "views"))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	for i := range members {
		stats.TotalEvents += events[i].Val()
		stats.TotalPageViews += views[i].Val()
	}
	return stats, nil
}

// Ping 检查连接
func (r *RedisSubscriberStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close 关闭连接
func (r *RedisSubscriberStore) Close() error {
	return r.client.Close()
}

func subscriberToHash(s *models.Subscriber, createdMS string) []interface{} {
	deletedAt := ""
	if s.DeletedAt.Valid {
		deletedAt = formatTime(s.DeletedAt.Time)
	}
	return []interface{}{
		"id", formatID(s.ID),
		"email", s.Email,
		"first_name", s.FirstName,
		"directory_customer_id", s.DirectoryCustomerID,
		"subscription_status", s.SubscriptionStatus,
		"ip_address", s.IPAddress,
		"user_agent", s.UserAgent,
		"referrer", s.Referrer,
		"source", s.Source,
		"section_id", s.SectionID,
		"session_id", s.SessionID,
		"created_at", formatTime(s.CreatedAt),
		"created_ms", createdMS,
		"updated_at", formatTime(s.UpdatedAt),
		"deleted_at", deletedAt,
	}
}

func subscriberFromHash(fields map[string]string) (*models.Subscriber, error) {
	id, err := strconv.ParseUint(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt subscriber hash id %q: %w", fields["id"], err)
	}
	s := &models.Subscriber{
		ID:                  uint(id),
		Email:               fields["email"],
		FirstName:           fields["first_name"],
		DirectoryCustomerID: fields["directory_customer_id"],
		SubscriptionStatus:  fields["subscription_status"],
		IPAddress:           fields["ip_address"],
		UserAgent:           fields["user_agent"],
		Referrer:            fields["referrer"],
		Source:              fields["source"],
		SectionID:           fields["section_id"],
		SessionID:           fields["session_id"],
		CreatedAt:           parseTime(fields["created_at"]),
		UpdatedAt:           parseTime(fields["updated_at"]),
	}
	if deletedAt := fields["deleted_at"]; deletedAt != "" {
		s.DeletedAt.Time = parseTime(deletedAt)
		s.DeletedAt.Valid = true
	}
	return s, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// isScriptFailure 区分脚本执行期错误与连接类错误，后者脚本不会被执行
func isScriptFailure(err error) bool {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "script")
}
