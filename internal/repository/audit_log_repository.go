package repository

import (
	"github.com/vaultpass/internal/models"

	"gorm.io/gorm"
)

// AuditLogRepository 审计日志数据访问接口
type AuditLogRepository interface {
	Create(entry *models.AuditLog) error
	ListByCertificate(certificateID uint) ([]models.AuditLog, error)
	List(filter AuditLogListFilter) ([]models.AuditLog, int64, error)
	WithTx(tx *gorm.DB) *GormAuditLogRepository
}

// GormAuditLogRepository GORM 实现
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志仓库
func NewAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAuditLogRepository) WithTx(tx *gorm.DB) *GormAuditLogRepository {
	if tx == nil {
		return r
	}
	return &GormAuditLogRepository{db: tx}
}

// Create 追加一条审计日志（只增不改）
func (r *GormAuditLogRepository) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

// ListByCertificate 按证书列出审计日志，按发生时间升序
func (r *GormAuditLogRepository) ListByCertificate(certificateID uint) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := r.db.Where("certificate_id = ?", certificateID).
		Order("performed_at asc, id asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// List 按条件分页列出审计日志
func (r *GormAuditLogRepository) List(filter AuditLogListFilter) ([]models.AuditLog, int64, error) {
	var entries []models.AuditLog
	query := r.db.Model(&models.AuditLog{})

	if filter.CertificateID != 0 {
		query = query.Where("certificate_id = ?", filter.CertificateID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.PerformedBy != "" {
		query = query.Where("performed_by = ?", filter.PerformedBy)
	}
	if filter.PerformedRole != "" {
		query = query.Where("performed_role = ?", filter.PerformedRole)
	}
	if filter.PerformedFrom != nil {
		query = query.Where("performed_at >= ?", *filter.PerformedFrom)
	}
	if filter.PerformedTo != nil {
		query = query.Where("performed_at <= ?", *filter.PerformedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
