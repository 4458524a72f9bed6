package worker

import (
	"context"
	"errors"
	"time"

	"github.com/vaultpass/internal/config"
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultSweepInterval = 5 * time.Minute

// Service 异步队列服务：消费清扫/到期任务，并带一条周期清扫兜底回路
type Service struct {
	name          string
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	sweepInterval := defaultSweepInterval
	if cfg.Certificate.SweepIntervalSecond > 0 {
		sweepInterval = time.Duration(cfg.Certificate.SweepIntervalSecond) * time.Second
	}
	return &Service{
		name:          "worker",
		server:        server,
		mux:           mux,
		consumer:      consumer,
		sweepInterval: sweepInterval,
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
	if s.consumer != nil && s.consumer.SweepService != nil {
		go s.runSweepLoop(ctx)
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

// runSweepLoop 周期清扫过期证书。单证到期任务覆盖了正常路径，
// 这条回路兜住入队失败或队列宕机漏掉的证书。
func (s *Service) runSweepLoop(ctx context.Context) {
	runOnce := func() {
		if s.consumer.QueueClient.Enabled() {
			err := s.consumer.QueueClient.EnqueueCertExpireSweep(queue.CertExpireSweepPayload{})
			if err == nil {
				return
			}
			logger.Warnw("worker_sweep_enqueue_failed", "error", err)
		}
		if _, err := s.consumer.SweepService.Sweep(0); err != nil {
			logger.Warnw("worker_sweep_loop_failed", "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
