package queue

import (
	"encoding/json"

	"github.com/vaultpass/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCertExpireSweep 过期证书清扫任务
	TaskCertExpireSweep = constants.TaskCertExpireSweep
	// TaskCertTimeoutCancel 单证书到期取消任务
	TaskCertTimeoutCancel = constants.TaskCertTimeoutCancel
)

// CertExpireSweepPayload 清扫任务载荷
type CertExpireSweepPayload struct {
	// Limit 单次清扫上限，0 表示不限制
	Limit int `json:"limit"`
}

// CertTimeoutCancelPayload 单证书到期取消任务载荷
type CertTimeoutCancelPayload struct {
	CertificateID uint `json:"certificate_id"`
}

// NewCertExpireSweepTask 创建清扫任务
func NewCertExpireSweepTask(payload CertExpireSweepPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCertExpireSweep, body), nil
}

// NewCertTimeoutCancelTask 创建单证书到期取消任务
func NewCertTimeoutCancelTask(payload CertTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCertTimeoutCancel, body), nil
}
