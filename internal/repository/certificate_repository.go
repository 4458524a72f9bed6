package repository

import (
	"errors"
	"time"

	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/models"

	"gorm.io/gorm"
)

// CertificateRepository 证书数据访问接口
type CertificateRepository interface {
	Create(cert *models.Certificate) error
	GetByID(id uint) (*models.Certificate, error)
	GetByNumber(number string) (*models.Certificate, error)
	List(filter CertificateListFilter) ([]models.Certificate, int64, error)
	UpdateFields(id uint, updates map[string]interface{}) error
	UpdateStatusIf(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)
	RedeemIf(number string, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)
	MarkInventoryReturnedIf(id uint, updates map[string]interface{}) (int64, error)
	ListExpiredCandidates(now time.Time, limit int) ([]models.Certificate, error)
	PendingCancelledClaimsByLocation() ([]CancelledClaimsRow, error)
	WithTx(tx *gorm.DB) *GormCertificateRepository
}

// GormCertificateRepository GORM 实现
type GormCertificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository 创建证书仓库
func NewCertificateRepository(db *gorm.DB) *GormCertificateRepository {
	return &GormCertificateRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCertificateRepository) WithTx(tx *gorm.DB) *GormCertificateRepository {
	if tx == nil {
		return r
	}
	return &GormCertificateRepository{db: tx}
}

// Create 创建证书
func (r *GormCertificateRepository) Create(cert *models.Certificate) error {
	return r.db.Create(cert).Error
}

// GetByID 根据 ID 获取证书
func (r *GormCertificateRepository) GetByID(id uint) (*models.Certificate, error) {
	var cert models.Certificate
	if err := r.db.Preload("ClaimLocation").First(&cert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

// GetByNumber 根据证书编号获取证书
func (r *GormCertificateRepository) GetByNumber(number string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := r.db.Preload("ClaimLocation").Where("certificate_number = ?", number).First(&cert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

// List 按条件分页列出证书
func (r *GormCertificateRepository) List(filter CertificateListFilter) ([]models.Certificate, int64, error) {
	var certs []models.Certificate
	query := r.db.Model(&models.Certificate{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ClaimLocationID != 0 {
		query = query.Where("claim_location_id = ?", filter.ClaimLocationID)
	}
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.CertificateNumber != "" {
		query = query.Where("certificate_number = ?", filter.CertificateNumber)
	}
	if filter.OnlyUnredeemed {
		query = query.Where("redeemed_at IS NULL")
	}
	if filter.OnlyUnvoided {
		query = query.Where("voided = ?", false)
	}
	if filter.ExpiresFrom != nil {
		query = query.Where("expires_at >= ?", *filter.ExpiresFrom)
	}
	if filter.ExpiresTo != nil {
		query = query.Where("expires_at <= ?", *filter.ExpiresTo)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if filter.WithClaimLocation {
		query = query.Preload("ClaimLocation")
	}
	if err := query.Order("id desc").Find(&certs).Error; err != nil {
		return nil, 0, err
	}
	return certs, total, nil
}

// UpdateFields 更新证书字段（无状态前置条件）
func (r *GormCertificateRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Certificate{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateStatusIf 条件状态更新：仅当当前状态等于 fromStatus 时生效。
// 目标为成功终态时额外要求未作废且从未核销过，作废与读写间隙里
// 并发提交的 Void 都不能被成功终态绕过。
// 返回受影响行数，0 表示乐观并发失败（状态已被他人改写）。
func (r *GormCertificateRepository) UpdateStatusIf(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	values := map[string]interface{}{"status": toStatus}
	for k, v := range updates {
		values[k] = v
	}
	query := r.db.Model(&models.Certificate{}).
		Where("id = ? AND status = ?", id, fromStatus)
	if isSuccessTerminalStatus(toStatus) {
		query = query.Where("voided = ? AND redeemed_at IS NULL", false)
	}
	result := query.Updates(values)
	return result.RowsAffected, result.Error
}

func isSuccessTerminalStatus(status string) bool {
	for _, s := range constants.CertSuccessTerminalStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// RedeemIf 核销专用的条件更新：按证书编号定位，除状态前置条件外
// 还要求未作废且从未核销过，保证同一证书至多成功核销一次。
func (r *GormCertificateRepository) RedeemIf(number string, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	values := map[string]interface{}{"status": toStatus}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.Model(&models.Certificate{}).
		Where("certificate_number = ? AND status = ? AND voided = ? AND redeemed_at IS NULL", number, fromStatus, false).
		Updates(values)
	return result.RowsAffected, result.Error
}

// MarkInventoryReturnedIf 标记库存已回收：仅对失败终态且尚未回收的证书生效。
func (r *GormCertificateRepository) MarkInventoryReturnedIf(id uint, updates map[string]interface{}) (int64, error) {
	values := map[string]interface{}{"inventory_returned": true}
	for k, v := range updates {
		values[k] = v
	}
	result := r.db.Model(&models.Certificate{}).
		Where("id = ? AND status IN ? AND inventory_returned = ?", id, constants.CertFailureTerminalStatuses, false).
		Updates(values)
	return result.RowsAffected, result.Error
}

// ListExpiredCandidates 列出已过期且仍可自动取消的证书：
// 过期时刻已过、从未核销、未作废且尚未进入终态。
func (r *GormCertificateRepository) ListExpiredCandidates(now time.Time, limit int) ([]models.Certificate, error) {
	var certs []models.Certificate
	query := r.db.Model(&models.Certificate{}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Where("redeemed_at IS NULL AND voided = ?", false).
		Where("status NOT IN ?", constants.CertTerminalStatuses).
		Order("expires_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&certs).Error; err != nil {
		return nil, err
	}
	return certs, nil
}

// PendingCancelledClaimsByLocation 按领取点聚合待回收的已取消证书。
// 仅统计启用中的领取点，计数为零的不出现在结果里；
// 按待回收数量降序排列，便于门店优先处理积压最多的点位。
func (r *GormCertificateRepository) PendingCancelledClaimsByLocation() ([]CancelledClaimsRow, error) {
	var rows []CancelledClaimsRow
	err := r.db.Table("locations").
		Select("locations.id AS location_id, locations.name AS location_name, locations.full_name AS location_full_name, COUNT(certificates.id) AS cancelled_count, MIN(certificates.cancelled_at) AS oldest_cancelled").
		Joins("JOIN certificates ON certificates.claim_location_id = locations.id AND certificates.status = ? AND certificates.inventory_returned = ?", constants.CertStatusCancelled, false).
		Where("locations.active = ?", true).
		Group("locations.id, locations.name, locations.full_name").
		Order("cancelled_count DESC, oldest_cancelled ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
