package app

import (
	"errors"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/provider"
	"github.com/dujiao-next/newsletter-tracker/internal/router"
	"github.com/dujiao-next/newsletter-tracker/internal/worker"
)

// BuildRunner 构建服务运行器，返回的容器需由调用方关闭
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	container, err := provider.NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}

	// 初始化 Worker 服务
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		if cfg.Queue.Enabled {
			workerService, err := worker.NewService(&cfg.Queue, consumer)
			if err != nil {
				_ = container.Close()
				return nil, nil, err
			}
			services = append(services, workerService)
		}
		if reconcileService, err := worker.NewReconcileService(cfg.Sync, consumer); err == nil {
			services = append(services, reconcileService)
		} else {
			logger.Debugw("app_reconcile_skipped", "reason", err.Error())
		}
	}

	if len(services) == 0 {
		_ = container.Close()
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := container.Close(); closeErr != nil {
			opts.Logger.Warnw("app_container_close_failed", "error", closeErr)
		}
	}()

	opts.Logger.Infow("app_start",
		"addr", opts.Config.Server.Addr(),
		"mode", opts.Mode,
		"storage", opts.Config.Storage.Driver,
		"services", runner.Names(),
	)
	return RunWithOptions(runner, opts)
}
