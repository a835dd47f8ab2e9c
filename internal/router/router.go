package router

import (
	"fmt"
	"strings"

	"github.com/dujiao-next/newsletter-tracker/internal/cache"
	"github.com/dujiao-next/newsletter-tracker/internal/config"
	adminhandlers "github.com/dujiao-next/newsletter-tracker/internal/http/handlers/admin"
	publichandlers "github.com/dujiao-next/newsletter-tracker/internal/http/handlers/public"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "nt"
	}
	redisClient := cache.Client()
	signupRule := buildRateLimitRule(redisPrefix, "signup", cfg.Security.SignupRateLimit)
	trackRule := buildRateLimitRule(redisPrefix, "track", cfg.Security.TrackRateLimit)
	// 采集上报尽力而为，限流器故障时不拦截
	trackRule.FailOpen = true
	adminLoginRule := buildRateLimitRule(redisPrefix, "admin_login", cfg.Security.LoginRateLimit)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.NoRoute(NotFoundHandler())

	r.GET("/health", publicHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", publicHandler.Health)
		api.GET("/captcha/config", publicHandler.GetCaptchaConfig)
		api.GET("/captcha/image", publicHandler.GetImageCaptcha)

		api.POST("/newsletter/signup", RateLimitMiddleware(redisClient, signupRule, KeyByIPAndJSONField("email")), publicHandler.Signup)

		track := api.Group("/track", RateLimitMiddleware(redisClient, trackRule, KeyByIP))
		{
			track.POST("/event", publicHandler.TrackEvent)
			track.POST("/page-view", publicHandler.TrackPageView)
		}

		api.POST("/update-subscription-status", publicHandler.UpdateSubscriptionStatus)
		api.POST("/sync-directory-status", publicHandler.SyncDirectoryStatus)
		// 兼容旧版前端脚本
		api.POST("/sync-shopify-status", publicHandler.SyncDirectoryStatus)

		// 后台接口
		api.POST("/admin/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

		admin := api.Group("/admin")
		admin.Use(AdminAuthMiddleware(c.AdminAuthService))
		admin.Use(AdminRBACMiddleware(c.AuthzService))
		{
			admin.POST("/logout", adminHandler.AdminLogout)
			admin.GET("/me", adminHandler.AdminProfile)
			admin.GET("/roles", adminHandler.GetRoles)

			admin.GET("/subscribers", adminHandler.GetSubscribers)
			admin.GET("/subscribers/trash", adminHandler.GetTrashedSubscribers)
			admin.GET("/subscribers/stats", adminHandler.GetSubscriberStats)
			admin.GET("/subscribers/:id", adminHandler.GetSubscriber)
			admin.DELETE("/subscribers/:id", adminHandler.DeleteSubscriber)
			admin.POST("/subscribers/:id/restore", adminHandler.RestoreSubscriber)
			admin.POST("/subscribers/:id/sync", adminHandler.SyncSubscriber)
			admin.DELETE("/subscribers/:id/permanent", adminHandler.PurgeSubscriber)

			admin.POST("/subscribers/bulk-delete", adminHandler.BulkDeleteSubscribers)
			admin.POST("/subscribers/bulk-restore", adminHandler.BulkRestoreSubscribers)
			admin.POST("/subscribers/bulk-permanent-delete", adminHandler.BulkPurgeSubscribers)
			admin.POST("/subscribers/bulk-sync", adminHandler.BulkSyncSubscribers)
		}
	}

	return r
}

func buildRateLimitRule(prefix, name string, cfg config.RateLimitConfig) RateLimitRule {
	return RateLimitRule{
		Name:          name,
		Prefix:        fmt.Sprintf("%s:rate:%s", prefix, name),
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}
}
