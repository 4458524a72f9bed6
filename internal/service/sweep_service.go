package service

import (
	"errors"
	"time"

	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/repository"
)

// SweepService 过期证书自动取消
type SweepService struct {
	certRepo    repository.CertificateRepository
	certService *CertificateService
}

// NewSweepService 创建清扫服务
func NewSweepService(certRepo repository.CertificateRepository, certService *CertificateService) *SweepService {
	return &SweepService{certRepo: certRepo, certService: certService}
}

// Sweep 取消所有已过期、未核销、未作废且未到终态的证书。
// 每张都走状态机流转，状态图与审计约束自然生效；
// 与人工操作撞上的并发冲突直接跳过，重跑一次不会多取消任何证书。
func (s *SweepService) Sweep(limit int) (int, error) {
	candidates, err := s.certRepo.ListExpiredCandidates(time.Now(), limit)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, cert := range candidates {
		_, err := s.certService.TransitionByID(cert.ID, TransitionInput{
			Target:   constants.CertStatusCancelled,
			Observed: cert.Status,
			Actor:    SystemActor,
			Action:   constants.AuditActionAutoCancelled,
			Metadata: map[string]interface{}{"reason": "expired"},
		})
		if err != nil {
			if errors.Is(err, ErrStatusConflict) || errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrCertificateNotFound) {
				continue
			}
			logger.Errorw("sweep cancel failed", "error", err, "certificate_id", cert.ID)
			continue
		}
		cancelled++
	}

	if cancelled > 0 {
		logger.Infow("expired certificates swept", "cancelled", cancelled, "candidates", len(candidates))
	}
	return cancelled, nil
}

// CancelByID 取消单张到期证书（到期定时任务用）。
// 证书已被核销或已到终态时按无事发生处理。
func (s *SweepService) CancelByID(certificateID uint) error {
	cert, err := s.certRepo.GetByID(certificateID)
	if err != nil {
		return err
	}
	if cert == nil || isTerminalCertStatus(cert.Status) || cert.RedeemedAt != nil || cert.Voided {
		return nil
	}
	if cert.ExpiresAt == nil || cert.ExpiresAt.After(time.Now()) {
		return nil
	}
	_, err = s.certService.TransitionByID(cert.ID, TransitionInput{
		Target:   constants.CertStatusCancelled,
		Observed: cert.Status,
		Actor:    SystemActor,
		Action:   constants.AuditActionAutoCancelled,
		Metadata: map[string]interface{}{"reason": "expired"},
	})
	if errors.Is(err, ErrStatusConflict) || errors.Is(err, ErrInvalidTransition) {
		return nil
	}
	return err
}
