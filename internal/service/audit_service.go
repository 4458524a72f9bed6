package service

import (
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/repository"
)

// AuditService 审计日志查询（写入都发生在证书服务的事务里）
type AuditService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditService 创建审计服务
func NewAuditService(auditRepo repository.AuditLogRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// List 管理端按条件分页查询审计日志
func (s *AuditService) List(filter repository.AuditLogListFilter) ([]models.AuditLog, int64, error) {
	entries, total, err := s.auditRepo.List(filter)
	if err != nil {
		logger.Errorw("audit list failed", "error", err)
		return nil, 0, err
	}
	return entries, total, nil
}
