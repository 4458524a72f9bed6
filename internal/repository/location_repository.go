package repository

import (
	"errors"

	"github.com/vaultpass/internal/models"

	"gorm.io/gorm"
)

// LocationRepository 领取点数据访问接口
type LocationRepository interface {
	Create(location *models.Location) error
	GetByID(id uint) (*models.Location, error)
	GetBySlug(slug string) (*models.Location, error)
	ListActive() ([]models.Location, error)
	ListAll() ([]models.Location, error)
	Update(id uint, updates map[string]interface{}) error
	WithTx(tx *gorm.DB) *GormLocationRepository
}

// GormLocationRepository GORM 实现
type GormLocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository 创建领取点仓库
func NewLocationRepository(db *gorm.DB) *GormLocationRepository {
	return &GormLocationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLocationRepository) WithTx(tx *gorm.DB) *GormLocationRepository {
	if tx == nil {
		return r
	}
	return &GormLocationRepository{db: tx}
}

// Create 创建领取点
func (r *GormLocationRepository) Create(location *models.Location) error {
	return r.db.Create(location).Error
}

// GetByID 根据 ID 获取领取点
func (r *GormLocationRepository) GetByID(id uint) (*models.Location, error) {
	var location models.Location
	if err := r.db.First(&location, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// GetBySlug 根据 slug 获取领取点
func (r *GormLocationRepository) GetBySlug(slug string) (*models.Location, error) {
	var location models.Location
	if err := r.db.Where("slug = ?", slug).First(&location).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &location, nil
}

// ListActive 列出启用中的领取点，按排序权重与 ID 排序
func (r *GormLocationRepository) ListActive() ([]models.Location, error) {
	var locations []models.Location
	if err := r.db.Where("active = ?", true).Order("sort_order asc, id asc").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// ListAll 列出全部领取点（含停用）
func (r *GormLocationRepository) ListAll() ([]models.Location, error) {
	var locations []models.Location
	if err := r.db.Order("sort_order asc, id asc").Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}

// Update 更新领取点字段
func (r *GormLocationRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Location{}).Where("id = ?", id).Updates(updates).Error
}
