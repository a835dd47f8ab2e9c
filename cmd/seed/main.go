package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/models"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"
	"github.com/dujiao-next/newsletter-tracker/internal/service"
)

type demoSubscriber struct {
	Email     string
	FirstName string
	Status    string
	Country   string
	City      string
	Trashed   bool
}

func main() {
	var (
		hashPassword string
		replay       bool
		serverURL    string
		replayEmail  string
		cacheDir     string
	)
	flag.StringVar(&hashPassword, "hash-password", "", "输出管理员密码的 bcrypt 哈希后退出")
	flag.BoolVar(&replay, "replay", false, "通过采集客户端向运行中的服务回放一次访客会话")
	flag.StringVar(&serverURL, "server", "http://127.0.0.1:3000", "回放目标服务地址")
	flag.StringVar(&replayEmail, "email", "replay@example.com", "回放会话最终注册的邮箱")
	flag.StringVar(&cacheDir, "cache-dir", "", "回放客户端的本地缓存目录，留空使用内存")
	flag.Parse()

	if hashPassword != "" {
		hash, err := service.HashPassword(hashPassword)
		if err != nil {
			fmt.Printf("Failed to hash password: %v\n", err)
			return
		}
		fmt.Println(hash)
		return
	}

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if replay {
		if err := replaySession(serverURL, replayEmail, cacheDir); err != nil {
			stdLog.Fatalf("Replay failed: %v", err)
		}
		fmt.Println("Replay finished!")
		return
	}

	store, err := repository.NewSubscriberStore(cfg.Storage, cfg.Redis)
	if err != nil {
		stdLog.Fatalf("Failed to open subscriber store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	subscribers := []demoSubscriber{
		{Email: "ada@example.com", FirstName: "Ada", Status: constants.SubscriptionStatusConfirmed, Country: "United Kingdom", City: "London"},
		{Email: "linus@example.com", FirstName: "Linus", Status: constants.SubscriptionStatusPending, Country: "Finland", City: "Helsinki"},
		{Email: "grace@example.com", FirstName: "Grace", Status: constants.SubscriptionStatusPending, Country: "United States", City: "New York"},
		{Email: "ken@example.com", FirstName: "Ken", Status: constants.SubscriptionStatusUnsubscribed, Country: "United States", City: "Berkeley", Trashed: true},
	}

	now := time.Now()
	for i, demo := range subscribers {
		sub := &models.Subscriber{
			Email:              demo.Email,
			FirstName:          demo.FirstName,
			SubscriptionStatus: demo.Status,
			Source:             "seed",
			SessionID:          fmt.Sprintf("seed-session-%d", i+1),
			UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 Safari/605.1.15",
		}
		if err := store.AddSubscriber(ctx, sub); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				logger.Infow("seed_subscriber_exists", "email", demo.Email)
				continue
			}
			stdLog.Fatalf("Failed to create subscriber %s: %v", demo.Email, err)
		}

		if err := store.AddDeviceLocationSnapshot(ctx, &models.DeviceLocationSnapshot{
			SubscriberID:     sub.ID,
			ScreenResolution: "1440x900",
			Viewport:         "1280x720",
			Timezone:         "UTC",
			Language:         "en-US",
			Platform:         "MacIntel",
			DeviceType:       "desktop",
			Browser:          "Safari",
			OperatingSystem:  "macOS",
			Country:          demo.Country,
			City:             demo.City,
			DetectionMethod:  "seed",
			PageURL:          "/pages/newsletter",
			CapturedAt:       now,
		}); err != nil {
			stdLog.Fatalf("Failed to create snapshot for %s: %v", demo.Email, err)
		}

		pages := []struct {
			URL   string
			Title string
			Spent int64
		}{
			{URL: "/", Title: "Home", Spent: 12000},
			{URL: "/collections/all", Title: "All products", Spent: 34000},
			{URL: "/products/field-notebook", Title: "Field Notebook", Spent: 51000},
		}
		for j, page := range pages {
			if err := store.AddPageView(ctx, &models.PageView{
				SubscriberID: sub.ID,
				SessionID:    sub.SessionID,
				PageURL:      page.URL,
				PageTitle:    page.Title,
				TimeSpentMS:  page.Spent,
				Timestamp:    now.Add(-time.Duration(len(pages)-j) * time.Minute),
			}); err != nil {
				stdLog.Fatalf("Failed to create page view for %s: %v", demo.Email, err)
			}
		}

		events := []models.BehavioralEvent{
			{EventType: constants.EventScrollDepth, EventData: models.JSON{"depth": 75}, PageURL: "/products/field-notebook"},
			{EventType: constants.EventAddToCartClick, EventData: models.JSON{"button_text": "Add to cart"}, PageURL: "/products/field-notebook"},
			{EventType: constants.EventNewsletterSignupSuccess, EventData: models.JSON{"form_id": "footer"}, PageURL: "/"},
		}
		for j := range events {
			events[j].SubscriberID = sub.ID
			events[j].SessionID = sub.SessionID
			events[j].Timestamp = now.Add(-time.Duration(len(events)-j) * time.Second)
			if err := store.AddBehavioralEvent(ctx, &events[j]); err != nil {
				stdLog.Fatalf("Failed to create event for %s: %v", demo.Email, err)
			}
		}

		if demo.Trashed {
			if _, err := store.SoftDelete(ctx, sub.ID); err != nil {
				stdLog.Fatalf("Failed to trash %s: %v", demo.Email, err)
			}
		}
		logger.Infow("seed_subscriber_created", "email", demo.Email, "subscriber_id", sub.ID, "trashed", demo.Trashed)
	}

	fmt.Println("Seed data inserted successfully!")
}
