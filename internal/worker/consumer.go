package worker

import (
	"context"
	"encoding/json"

	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/provider"
	"github.com/vaultpass/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskCertExpireSweep, c.handleCertExpireSweep)
	mux.HandleFunc(queue.TaskCertTimeoutCancel, c.handleCertTimeoutCancel)
}

func (c *Consumer) handleCertExpireSweep(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.CertExpireSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cert_sweep_unmarshal_failed", "error", err)
		return err
	}
	cancelled, err := c.SweepService.Sweep(payload.Limit)
	if err != nil {
		logger.Warnw("worker_cert_sweep_failed", "error", err)
		return err
	}
	if cancelled > 0 {
		logger.Infow("worker_cert_sweep_done", "cancelled", cancelled)
	}
	return nil
}

func (c *Consumer) handleCertTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.CertTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_cert_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.CertificateID == 0 {
		logger.Debugw("worker_cert_timeout_cancel_skip_invalid_payload", "certificate_id", payload.CertificateID)
		return nil
	}
	if err := c.SweepService.CancelByID(payload.CertificateID); err != nil {
		logger.Warnw("worker_cert_timeout_cancel_failed", "certificate_id", payload.CertificateID, "error", err)
		return err
	}
	return nil
}
