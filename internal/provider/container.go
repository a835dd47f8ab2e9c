package provider

import (
	"fmt"

	"github.com/dujiao-next/newsletter-tracker/internal/authz"
	"github.com/dujiao-next/newsletter-tracker/internal/cache"
	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/directory"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/queue"
	"github.com/dujiao-next/newsletter-tracker/internal/repository"
	"github.com/dujiao-next/newsletter-tracker/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Storage
	Store     repository.SubscriberStore
	Directory directory.Directory

	// Services
	AuthzService           *authz.Service
	AdminAuthService       *service.AdminAuthService
	CaptchaService         *service.CaptchaService
	SubscriberService      *service.SubscriberService
	AdminSubscriberService *service.AdminSubscriberService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	store, err := repository.NewSubscriberStore(cfg.Storage, cfg.Redis)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		Store:       store,
		Directory:   directory.New(cfg.Directory),
	}
	if !cfg.Directory.Enabled() {
		logger.Warnw("provider_directory_disabled", "reason", "shop_domain or access_token missing")
	}

	if err := c.initServices(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return c, nil
}

// NewContainerWith 使用已构建的存储与目录组装服务，供测试与 seed 工具使用
func NewContainerWith(cfg *config.Config, store repository.SubscriberStore, dir directory.Directory) (*Container, error) {
	c := &Container{
		Config:    cfg,
		Store:     store,
		Directory: dir,
	}
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initServices() error {
	authzService, err := authz.NewService()
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	for _, account := range c.Config.Admin.Accounts {
		if err := c.AuthzService.AssignAdminRole(account.Username, account.Role); err != nil {
			logger.Warnw("provider_assign_admin_role_failed", "username", account.Username, "error", err)
		}
	}

	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	if err := service.ValidateCaptchaSetting(c.CaptchaService.Setting()); err != nil {
		logger.Errorw("provider_invalid_captcha_setting", "error", err)
		return err
	}
	c.AdminAuthService = service.NewAdminAuthService(c.Config.Admin)

	syncQueue := c.syncQueue()
	c.SubscriberService = service.NewSubscriberService(c.Store, c.Directory, c.CaptchaService, syncQueue, c.Config)
	c.AdminSubscriberService = service.NewAdminSubscriberService(c.Store, c.SubscriberService, syncQueue)
	return nil
}

// syncQueue 队列未启用时返回 nil 接口，服务层据此改为同步对账
func (c *Container) syncQueue() service.DirectorySyncEnqueuer {
	if c.QueueClient == nil || !c.QueueClient.Enabled() {
		return nil
	}
	return c.QueueClient
}

// Close 释放存储、队列与缓存连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var firstErr error
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := cache.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
