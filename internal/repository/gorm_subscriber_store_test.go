package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupGormStoreDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:subscriber_store_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := models.MigrateWith(db); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

func TestGormSubscriberStoreConformance(t *testing.T) {
	runSubscriberStoreConformance(t, func(t *testing.T) SubscriberStore {
		return NewGormSubscriberStore(setupGormStoreDB(t))
	})
}

func TestGormPurgeRollsBackWhenParentDeleteFails(t *testing.T) {
	db := setupGormStoreDB(t)
	store := NewGormSubscriberStore(db)
	ctx := context.Background()

	sub := mustAddSubscriber(t, store, "atomic@example.com")
	mustAddEvent(t, store, sub.ID, constants.EventScrollDepth, time.Now())
	mustAddEvent(t, store, sub.ID, constants.EventButtonClick, time.Now())
	if err := store.AddDeviceLocationSnapshot(ctx, &models.DeviceLocationSnapshot{SubscriberID: sub.ID}); err != nil {
		t.Fatalf("add snapshot failed: %v", err)
	}
	if ok, _ := store.SoftDelete(ctx, sub.ID); !ok {
		t.Fatalf("soft delete should succeed")
	}

	injected := errors.New("injected subscriber delete failure")
	if err := db.Callback().Delete().Before("gorm:delete").Register("test:fail_subscriber_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "subscribers" {
			_ = tx.AddError(injected)
		}
	}); err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	ok, err := store.PermanentlyDelete(ctx, sub.ID)
	if ok || !errors.Is(err, injected) {
		t.Fatalf("purge should fail with injected error, got ok=%v err=%v", ok, err)
	}

	_ = db.Callback().Delete().Remove("test:fail_subscriber_delete")
	detail, err := store.GetSubscriberDetail(ctx, sub.ID)
	if err != nil || detail == nil {
		t.Fatalf("subscriber should survive rolled back purge: %+v %v", detail, err)
	}
	if len(detail.BehavioralEvents) != 2 || detail.DeviceLocation == nil {
		t.Fatalf("children should be restored by rollback, got events=%d snapshot=%v", len(detail.BehavioralEvents), detail.DeviceLocation)
	}
}

func TestGormAddSubscriberRejectsRowWrittenOutsideStore(t *testing.T) {
	db := setupGormStoreDB(t)
	store := NewGormSubscriberStore(db)

	// 直接写库模拟另一个进程抢先注册
	if err := db.Create(&models.Subscriber{Email: "race@example.com", FirstName: "R", SubscriptionStatus: constants.SubscriptionStatusPending}).Error; err != nil {
		t.Fatalf("seed subscriber failed: %v", err)
	}
	err := store.AddSubscriber(context.Background(), &models.Subscriber{Email: "RACE@example.com", FirstName: "R"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestGormAddSubscriberWithHistoryRollsBackOnSnapshotFailure(t *testing.T) {
	db := setupGormStoreDB(t)
	store := NewGormSubscriberStore(db)
	ctx := context.Background()

	injected := errors.New("injected snapshot insert failure")
	if err := db.Callback().Create().Before("gorm:create").Register("test:fail_snapshot_create", func(tx *gorm.DB) {
		if tx.Statement.Table == "device_location_snapshots" {
			_ = tx.AddError(injected)
		}
	}); err != nil {
		t.Fatalf("register callback failed: %v", err)
	}

	sub := &models.Subscriber{Email: "rollback@example.com", FirstName: "R"}
	events := []*models.BehavioralEvent{{EventType: constants.EventPageView}}
	err := store.AddSubscriberWithHistory(ctx, sub, &models.DeviceLocationSnapshot{Country: "Peru"}, events)
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if sub.ID != 0 {
		t.Fatalf("subscriber id should be cleared after rollback, got %d", sub.ID)
	}
	_ = db.Callback().Create().Remove("test:fail_snapshot_create")

	found, err := store.GetSubscriberByEmail(ctx, "rollback@example.com")
	if err != nil || found != nil {
		t.Fatalf("subscriber row should be rolled back, got %+v %v", found, err)
	}
	var eventCount int64
	if err := db.Model(&models.BehavioralEvent{}).Count(&eventCount).Error; err != nil || eventCount != 0 {
		t.Fatalf("no events should remain, got %d %v", eventCount, err)
	}
}
