package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/models"
)

// runSubscriberStoreConformance 两种后端共用的行为用例
func runSubscriberStoreConformance(t *testing.T, newStore func(t *testing.T) SubscriberStore) {
	t.Helper()

	cases := []struct {
		name string
		run  func(t *testing.T, store SubscriberStore)
	}{
		{"UniqueEmailCaseInsensitive", testUniqueEmailCaseInsensitive},
		{"MonotonicIDs", testMonotonicIDs},
		{"AddSubscriberWithHistory", testAddSubscriberWithHistory},
		{"AddSubscriberWithHistoryAllOrNothing", testAddSubscriberWithHistoryAllOrNothing},
		{"LifecycleLegality", testLifecycleLegality},
		{"PurgeCascade", testPurgeCascade},
		{"UnknownEventTypeRejected", testUnknownEventTypeRejected},
		{"MissingParentRejected", testMissingParentRejected},
		{"ListWithCounts", testListWithCounts},
		{"SearchMatchesLiterally", testSearchMatchesLiterally},
		{"DetailNewestFirst", testDetailNewestFirst},
		{"SubscriptionStatus", testSubscriptionStatus},
		{"PendingSubscribers", testPendingSubscribers},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.run(t, newStore(t))
		})
	}
}

func mustAddSubscriber(t *testing.T, store SubscriberStore, email string) *models.Subscriber {
	t.Helper()
	sub := &models.Subscriber{Email: email, FirstName: "Ada", Source: constants.SubscriberSourceDefault}
	if err := store.AddSubscriber(context.Background(), sub); err != nil {
		t.Fatalf("add subscriber %s failed: %v", email, err)
	}
	if sub.ID == 0 {
		t.Fatalf("subscriber id should be assigned")
	}
	return sub
}

func mustAddEvent(t *testing.T, store SubscriberStore, subscriberID uint, eventType string, at time.Time) {
	t.Helper()
	err := store.AddBehavioralEvent(context.Background(), &models.BehavioralEvent{
		SubscriberID: subscriberID,
		EventType:    eventType,
		EventData:    models.JSON{"percent": 50},
		PageURL:      "/x",
		Timestamp:    at,
	})
	if err != nil {
		t.Fatalf("add event failed: %v", err)
	}
}

func testUniqueEmailCaseInsensitive(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	first := mustAddSubscriber(t, store, "A@Example.com")
	if first.Email != "a@example.com" {
		t.Fatalf("email should be stored lower-cased, got %s", first.Email)
	}

	err := store.AddSubscriber(ctx, &models.Subscriber{Email: "a@EXAMPLE.com ", FirstName: "B"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	found, err := store.GetSubscriberByEmail(ctx, "  A@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Fatalf("case-insensitive lookup should find subscriber %d, got %+v", first.ID, found)
	}
	if found.SubscriptionStatus != constants.SubscriptionStatusPending {
		t.Fatalf("default status should be pending, got %s", found.SubscriptionStatus)
	}

	missing, err := store.GetSubscriberByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Fatalf("unknown email should return nil,nil got %+v %v", missing, err)
	}

	// 回收站中的记录依然占用邮箱
	if ok, err := store.SoftDelete(ctx, first.ID); err != nil || !ok {
		t.Fatalf("soft delete failed: ok=%v err=%v", ok, err)
	}
	trashed, err := store.GetSubscriberByEmail(ctx, "a@example.com")
	if err != nil || trashed == nil || !trashed.IsTrashed() {
		t.Fatalf("trashed subscriber should still be found, got %+v %v", trashed, err)
	}
	if err := store.AddSubscriber(ctx, &models.Subscriber{Email: "a@example.com", FirstName: "C"}); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("trashed email should stay unique, got %v", err)
	}
}

func testMonotonicIDs(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	a := mustAddSubscriber(t, store, "one@example.com")
	b := mustAddSubscriber(t, store, "two@example.com")
	if b.ID <= a.ID {
		t.Fatalf("ids should increase: %d then %d", a.ID, b.ID)
	}
	if ok, _ := store.SoftDelete(ctx, b.ID); !ok {
		t.Fatalf("soft delete should succeed")
	}
	if ok, err := store.PermanentlyDelete(ctx, b.ID); err != nil || !ok {
		t.Fatalf("purge failed: ok=%v err=%v", ok, err)
	}
	c := mustAddSubscriber(t, store, "three@example.com")
	if c.ID <= b.ID {
		t.Fatalf("purged id %d must not be reused, got %d", b.ID, c.ID)
	}
	// 彻底删除后邮箱可以重新注册
	again := mustAddSubscriber(t, store, "two@example.com")
	if again.ID <= c.ID {
		t.Fatalf("re-registered email should get a fresh id, got %d", again.ID)
	}
}

func testAddSubscriberWithHistory(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	sub := &models.Subscriber{Email: "History@Example.com", FirstName: "Hal", SessionID: "sess-h"}
	snapshot := &models.DeviceLocationSnapshot{Country: "Japan", DeviceType: constants.DeviceTypeMobile}
	base := time.Now().Add(-time.Minute)
	events := []*models.BehavioralEvent{
		{EventType: constants.EventPageView, PageURL: "/a", Timestamp: base},
		{EventType: constants.EventScrollDepth, EventData: models.JSON{"percent": 75}, Timestamp: base.Add(time.Second)},
	}
	if err := store.AddSubscriberWithHistory(ctx, sub, snapshot, events); err != nil {
		t.Fatalf("add with history failed: %v", err)
	}
	if sub.ID == 0 || snapshot.SubscriberID != sub.ID || snapshot.ID == 0 {
		t.Fatalf("ids should be assigned: sub=%+v snapshot=%+v", sub, snapshot)
	}
	if events[0].ID == 0 || events[1].ID <= events[0].ID || events[1].SubscriberID != sub.ID {
		t.Fatalf("event ids should be assigned in order: %+v %+v", events[0], events[1])
	}

	detail, err := store.GetSubscriberDetail(ctx, sub.ID)
	if err != nil || detail == nil {
		t.Fatalf("detail failed: %+v %v", detail, err)
	}
	if detail.Subscriber.Email != "history@example.com" || detail.Subscriber.SubscriptionStatus != constants.SubscriptionStatusPending {
		t.Fatalf("unexpected subscriber: %+v", detail.Subscriber)
	}
	if detail.DeviceLocation == nil || detail.DeviceLocation.Country != "Japan" {
		t.Fatalf("snapshot should be stored, got %+v", detail.DeviceLocation)
	}
	if len(detail.BehavioralEvents) != 2 || detail.BehavioralEvents[0].EventType != constants.EventScrollDepth {
		t.Fatalf("expected both events newest first, got %+v", detail.BehavioralEvents)
	}

	// 无快照、无事件时退化为普通创建
	bare := &models.Subscriber{Email: "bare@example.com", FirstName: "B"}
	if err := store.AddSubscriberWithHistory(ctx, bare, nil, nil); err != nil || bare.ID == 0 {
		t.Fatalf("bare add failed: id=%d err=%v", bare.ID, err)
	}

	dup := &models.Subscriber{Email: "HISTORY@example.com", FirstName: "Dup"}
	dupSnapshot := &models.DeviceLocationSnapshot{Country: "France"}
	if err := store.AddSubscriberWithHistory(ctx, dup, dupSnapshot, nil); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if dup.ID != 0 || dupSnapshot.ID != 0 {
		t.Fatalf("failed write should not leave ids behind: %d %d", dup.ID, dupSnapshot.ID)
	}
	detail, _ = store.GetSubscriberDetail(ctx, sub.ID)
	if detail.DeviceLocation == nil || detail.DeviceLocation.Country != "Japan" {
		t.Fatalf("duplicate write must not touch the existing subscriber, got %+v", detail.DeviceLocation)
	}
}

func testAddSubscriberWithHistoryAllOrNothing(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	sub := &models.Subscriber{Email: "partial@example.com", FirstName: "P"}
	events := []*models.BehavioralEvent{
		{EventType: constants.EventButtonClick},
		{EventType: "mouse_wiggle"},
	}
	err := store.AddSubscriberWithHistory(ctx, sub, &models.DeviceLocationSnapshot{Country: "Spain"}, events)
	if !errors.Is(err, ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
	found, err := store.GetSubscriberByEmail(ctx, "partial@example.com")
	if err != nil || found != nil {
		t.Fatalf("rejected batch must not create the subscriber, got %+v %v", found, err)
	}
	stats, err := store.Stats(ctx)
	if err != nil || stats.TotalSubscribers != 0 {
		t.Fatalf("store should stay empty, got %+v %v", stats, err)
	}

	// 同一邮箱修正后可以完整写入
	events[1].EventType = constants.EventCartView
	if err := store.AddSubscriberWithHistory(ctx, sub, nil, events); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	detail, _ := store.GetSubscriberDetail(ctx, sub.ID)
	if detail == nil || len(detail.BehavioralEvents) != 2 || detail.DeviceLocation != nil {
		t.Fatalf("retry should store exactly the new batch, got %+v", detail)
	}
}

func testLifecycleLegality(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	sub := mustAddSubscriber(t, store, "life@example.com")

	if ok, err := store.Restore(ctx, sub.ID); err != nil || ok {
		t.Fatalf("restore on active should report false, got ok=%v err=%v", ok, err)
	}
	if ok, err := store.PermanentlyDelete(ctx, sub.ID); err != nil || ok {
		t.Fatalf("purge on active should report false, got ok=%v err=%v", ok, err)
	}
	if ok, err := store.SoftDelete(ctx, sub.ID); err != nil || !ok {
		t.Fatalf("soft delete on active should succeed, got ok=%v err=%v", ok, err)
	}
	if ok, err := store.SoftDelete(ctx, sub.ID); err != nil || ok {
		t.Fatalf("soft delete on trashed should report false, got ok=%v err=%v", ok, err)
	}
	if ok, err := store.Restore(ctx, sub.ID); err != nil || !ok {
		t.Fatalf("restore on trashed should succeed, got ok=%v err=%v", ok, err)
	}
	restored, _ := store.GetSubscriberByID(ctx, sub.ID)
	if restored == nil || restored.IsTrashed() {
		t.Fatalf("restored subscriber should be active, got %+v", restored)
	}
	if ok, err := store.SoftDelete(ctx, 999999); err != nil || ok {
		t.Fatalf("soft delete on unknown id should report false, got ok=%v err=%v", ok, err)
	}
}

func testPurgeCascade(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	keep := mustAddSubscriber(t, store, "keep@example.com")
	mustAddEvent(t, store, keep.ID, constants.EventButtonClick, time.Now())

	sub := mustAddSubscriber(t, store, "purge@example.com")
	for i := 0; i < 3; i++ {
		mustAddEvent(t, store, sub.ID, constants.EventScrollDepth, time.Now())
	}
	if err := store.AddDeviceLocationSnapshot(ctx, &models.DeviceLocationSnapshot{SubscriberID: sub.ID, Country: "NZ"}); err != nil {
		t.Fatalf("add snapshot failed: %v", err)
	}
	if err := store.AddPageView(ctx, &models.PageView{SubscriberID: sub.ID, PageURL: "/"}); err != nil {
		t.Fatalf("add page view failed: %v", err)
	}

	if ok, _ := store.SoftDelete(ctx, sub.ID); !ok {
		t.Fatalf("soft delete should succeed")
	}
	if ok, err := store.PermanentlyDelete(ctx, sub.ID); err != nil || !ok {
		t.Fatalf("purge failed: ok=%v err=%v", ok, err)
	}

	detail, err := store.GetSubscriberDetail(ctx, sub.ID)
	if err != nil || detail != nil {
		t.Fatalf("purged detail should be nil, got %+v %v", detail, err)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalSubscribers != 1 || stats.TotalEvents != 1 || stats.TotalPageViews != 0 {
		t.Fatalf("only the kept subscriber's rows should remain, got %+v", stats)
	}
	if ok, err := store.PermanentlyDelete(ctx, sub.ID); err != nil || ok {
		t.Fatalf("second purge should report false, got ok=%v err=%v", ok, err)
	}
}

func testUnknownEventTypeRejected(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	sub := mustAddSubscriber(t, store, "event@example.com")
	err := store.AddBehavioralEvent(ctx, &models.BehavioralEvent{SubscriberID: sub.ID, EventType: "mouse_wiggle"})
	if !errors.Is(err, ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
	detail, _ := store.GetSubscriberDetail(ctx, sub.ID)
	if detail == nil || len(detail.BehavioralEvents) != 0 {
		t.Fatalf("storage should be unchanged, got %+v", detail)
	}
}

func testMissingParentRejected(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	if err := store.AddBehavioralEvent(ctx, &models.BehavioralEvent{SubscriberID: 4242, EventType: constants.EventPageView}); !errors.Is(err, ErrSubscriberMissing) {
		t.Fatalf("event: expected ErrSubscriberMissing, got %v", err)
	}
	if err := store.AddPageView(ctx, &models.PageView{SubscriberID: 4242, PageURL: "/"}); !errors.Is(err, ErrSubscriberMissing) {
		t.Fatalf("page view: expected ErrSubscriberMissing, got %v", err)
	}
	if err := store.AddDeviceLocationSnapshot(ctx, &models.DeviceLocationSnapshot{SubscriberID: 4242}); !errors.Is(err, ErrSubscriberMissing) {
		t.Fatalf("snapshot: expected ErrSubscriberMissing, got %v", err)
	}
}

func testListWithCounts(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	var ids []uint
	for i := 0; i < 4; i++ {
		sub := mustAddSubscriber(t, store, fmt.Sprintf("list%d@example.com", i))
		ids = append(ids, sub.ID)
		time.Sleep(2 * time.Millisecond)
	}
	mustAddEvent(t, store, ids[0], constants.EventButtonClick, time.Now())
	mustAddEvent(t, store, ids[0], constants.EventCartView, time.Now())
	if err := store.AddPageView(ctx, &models.PageView{SubscriberID: ids[0], PageURL: "/cart"}); err != nil {
		t.Fatalf("add page view failed: %v", err)
	}
	if err := store.AddDeviceLocationSnapshot(ctx, &models.DeviceLocationSnapshot{SubscriberID: ids[0], Country: "Canada", DeviceType: constants.DeviceTypeMobile}); err != nil {
		t.Fatalf("add snapshot failed: %v", err)
	}
	if ok, _ := store.SoftDelete(ctx, ids[3]); !ok {
		t.Fatalf("soft delete should succeed")
	}

	active, total, err := store.ListActiveSubscribersWithCounts(ctx, SubscriberListFilter{})
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}
	if total != 3 || len(active) != 3 {
		t.Fatalf("expected 3 active, got total=%d len=%d", total, len(active))
	}
	if active[0].ID != ids[2] {
		t.Fatalf("active list should be newest first, got first id %d", active[0].ID)
	}
	first := active[len(active)-1]
	if first.ID != ids[0] || first.BehavioralEventsCount != 2 || first.PageViewsCount != 1 {
		t.Fatalf("unexpected counts for oldest subscriber: %+v", first)
	}
	if first.Country != "Canada" || first.DeviceType != constants.DeviceTypeMobile {
		t.Fatalf("summary should carry device snapshot, got %+v", first)
	}

	trashed, total, err := store.ListTrashedSubscribersWithCounts(ctx, SubscriberListFilter{})
	if err != nil {
		t.Fatalf("list trashed failed: %v", err)
	}
	if total != 1 || len(trashed) != 1 || trashed[0].ID != ids[3] {
		t.Fatalf("unexpected trash list: total=%d %+v", total, trashed)
	}

	paged, total, err := store.ListActiveSubscribersWithCounts(ctx, SubscriberListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("paged list failed: %v", err)
	}
	if total != 3 || len(paged) != 1 {
		t.Fatalf("page 2 should hold 1 of 3, got total=%d len=%d", total, len(paged))
	}

	searched, total, err := store.ListActiveSubscribersWithCounts(ctx, SubscriberListFilter{Search: "LIST1"})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || len(searched) != 1 || searched[0].ID != ids[1] {
		t.Fatalf("search should match list1, got total=%d %+v", total, searched)
	}
}

func testSearchMatchesLiterally(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	underscore := mustAddSubscriber(t, store, "a_b@example.com")
	mustAddSubscriber(t, store, "axb@example.com")
	percent := mustAddSubscriber(t, store, "100%off@example.com")
	mustAddSubscriber(t, store, "100xoff@example.com")

	cases := []struct {
		search string
		want   uint
	}{
		{"a_b", underscore.ID},
		{"100%", percent.ID},
	}
	for _, tc := range cases {
		got, total, err := store.ListActiveSubscribersWithCounts(ctx, SubscriberListFilter{Search: tc.search})
		if err != nil {
			t.Fatalf("search %q failed: %v", tc.search, err)
		}
		if total != 1 || len(got) != 1 || got[0].ID != tc.want {
			t.Fatalf("search %q should match one row literally, got total=%d %+v", tc.search, total, got)
		}
	}
}

func testDetailNewestFirst(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	sub := mustAddSubscriber(t, store, "detail@example.com")
	base := time.Now().Add(-time.Hour)
	mustAddEvent(t, store, sub.ID, constants.EventPageView, base)
	mustAddEvent(t, store, sub.ID, constants.EventScrollDepth, base.Add(time.Minute))
	mustAddEvent(t, store, sub.ID, constants.EventAddToCartClick, base.Add(2*time.Minute))
	if err := store.AddPageView(ctx, &models.PageView{SubscriberID: sub.ID, PageURL: "/a", Timestamp: base}); err != nil {
		t.Fatalf("add page view failed: %v", err)
	}
	if err := store.AddPageView(ctx, &models.PageView{SubscriberID: sub.ID, PageURL: "/b", Timestamp: base.Add(time.Minute)}); err != nil {
		t.Fatalf("add page view failed: %v", err)
	}

	detail, err := store.GetSubscriberDetail(ctx, sub.ID)
	if err != nil || detail == nil {
		t.Fatalf("detail failed: %+v %v", detail, err)
	}
	if len(detail.BehavioralEvents) != 3 || detail.BehavioralEvents[0].EventType != constants.EventAddToCartClick {
		t.Fatalf("events should be newest first, got %+v", detail.BehavioralEvents)
	}
	if got := detail.BehavioralEvents[2].EventData["percent"]; fmt.Sprint(got) != "50" {
		t.Fatalf("payload should round-trip, got %#v", got)
	}
	if len(detail.PageViews) != 2 || detail.PageViews[0].PageURL != "/b" {
		t.Fatalf("page views should be newest first, got %+v", detail.PageViews)
	}
	if detail.DeviceLocation != nil {
		t.Fatalf("no snapshot was recorded, got %+v", detail.DeviceLocation)
	}

	missing, err := store.GetSubscriberDetail(ctx, 777777)
	if err != nil || missing != nil {
		t.Fatalf("unknown detail should be nil,nil got %+v %v", missing, err)
	}
}

func testSubscriptionStatus(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	sub := mustAddSubscriber(t, store, "status@example.com")
	if ok, err := store.UpdateSubscriptionStatus(ctx, sub.ID, constants.SubscriptionStatusConfirmed); err != nil || !ok {
		t.Fatalf("status update failed: ok=%v err=%v", ok, err)
	}
	got, _ := store.GetSubscriberByID(ctx, sub.ID)
	if got.SubscriptionStatus != constants.SubscriptionStatusConfirmed {
		t.Fatalf("status should be confirmed, got %s", got.SubscriptionStatus)
	}
	if _, err := store.UpdateSubscriptionStatus(ctx, sub.ID, "maybe"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if ok, err := store.UpdateSubscriptionStatus(ctx, 888888, constants.SubscriptionStatusPending); err != nil || ok {
		t.Fatalf("unknown id should report false, got ok=%v err=%v", ok, err)
	}

	// 状态与回收站互不影响
	if ok, _ := store.SoftDelete(ctx, sub.ID); !ok {
		t.Fatalf("soft delete should succeed")
	}
	if ok, err := store.UpdateSubscriptionStatus(ctx, sub.ID, constants.SubscriptionStatusUnsubscribed); err != nil || !ok {
		t.Fatalf("status update on trashed failed: ok=%v err=%v", ok, err)
	}
	got, _ = store.GetSubscriberByID(ctx, sub.ID)
	if !got.IsTrashed() || got.SubscriptionStatus != constants.SubscriptionStatusUnsubscribed {
		t.Fatalf("unexpected subscriber after status update: %+v", got)
	}
}

func testPendingSubscribers(t *testing.T, store SubscriberStore) {
	ctx := context.Background()
	a := mustAddSubscriber(t, store, "p1@example.com")
	time.Sleep(2 * time.Millisecond)
	b := mustAddSubscriber(t, store, "p2@example.com")
	time.Sleep(2 * time.Millisecond)
	c := mustAddSubscriber(t, store, "p3@example.com")
	if _, err := store.UpdateSubscriptionStatus(ctx, b.ID, constants.SubscriptionStatusConfirmed); err != nil {
		t.Fatalf("status update failed: %v", err)
	}
	if ok, _ := store.SoftDelete(ctx, c.ID); !ok {
		t.Fatalf("soft delete should succeed")
	}
	pending, err := store.ListPendingSubscribers(ctx, 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != a.ID {
		t.Fatalf("only the active pending subscriber should be listed, got %+v", pending)
	}
}
