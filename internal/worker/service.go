package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/logger"
	"github.com/dujiao-next/newsletter-tracker/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultReconcileBatchSize = 50
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// ReconcileService 定时把 pending 订阅者与外部目录对账，不依赖队列
type ReconcileService struct {
	consumer  *Consumer
	interval  time.Duration
	batchSize int
	done      chan struct{}
}

// NewReconcileService 创建对账服务，interval 为 0 时返回错误
func NewReconcileService(cfg config.SyncConfig, consumer *Consumer) (*ReconcileService, error) {
	if cfg.IntervalSeconds <= 0 {
		return nil, errors.New("reconcile disabled")
	}
	if consumer == nil || consumer.Container == nil || consumer.SubscriberService == nil {
		return nil, errors.New("consumer is nil")
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &ReconcileService{
		consumer:  consumer,
		interval:  time.Duration(cfg.IntervalSeconds) * time.Second,
		batchSize: batch,
		done:      make(chan struct{}),
	}, nil
}

// Name 服务名称
func (s *ReconcileService) Name() string {
	return "reconcile"
}

// Start 阻塞运行对账循环直到 ctx 结束
func (s *ReconcileService) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("reconcile not initialized")
	}
	defer close(s.done)
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Stop 等待当前一轮对账结束
func (s *ReconcileService) Stop(ctx context.Context) error {
	if s == nil || s.done == nil {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ReconcileService) runOnce(ctx context.Context) {
	updated, err := s.consumer.SubscriberService.ReconcilePending(ctx, s.batchSize)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Warnw("worker_reconcile_pending_failed", "updated", updated, "error", err)
		return
	}
	if updated > 0 {
		logger.Infow("worker_reconcile_pending_done", "updated", updated, "batch_size", s.batchSize)
	}
}
