package service

import (
	"regexp"
	"strings"

	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/repository"
)

// LocationService 领取点管理
type LocationService struct {
	locationRepo repository.LocationRepository
}

// NewLocationService 创建领取点服务
func NewLocationService(locationRepo repository.LocationRepository) *LocationService {
	return &LocationService{locationRepo: locationRepo}
}

// LocationInput 创建/更新领取点输入
type LocationInput struct {
	Name      string
	FullName  string
	Slug      string
	Address   string
	City      string
	State     string
	Zip       string
	Phone     string
	Active    *bool
	SortOrder *int
	// StaffPin / AdminPin 非空时轮换对应 PIN
	StaffPin string
	AdminPin string
}

// ListActive 客户侧可见的启用领取点
func (s *LocationService) ListActive() ([]models.Location, error) {
	return s.locationRepo.ListActive()
}

// ListAll 管理侧全部领取点
func (s *LocationService) ListAll() ([]models.Location, error) {
	return s.locationRepo.ListAll()
}

// Get 按 ID 获取领取点
func (s *LocationService) Get(id uint) (*models.Location, error) {
	location, err := s.locationRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrLocationNotFound
	}
	return location, nil
}

// Create 创建领取点，slug 缺省由名称生成
func (s *LocationService) Create(input LocationInput) (*models.Location, error) {
	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		slug = slugifyLocation(input.Name)
	}
	existing, err := s.locationRepo.GetBySlug(slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateSlug
	}

	location := &models.Location{
		Name:     strings.TrimSpace(input.Name),
		FullName: strings.TrimSpace(input.FullName),
		Slug:     slug,
		Address:  input.Address,
		City:     input.City,
		State:    input.State,
		Zip:      input.Zip,
		Phone:    input.Phone,
		Active:   true,
	}
	if input.Active != nil {
		location.Active = *input.Active
	}
	if input.SortOrder != nil {
		location.SortOrder = *input.SortOrder
	}
	if input.StaffPin != "" {
		hash, err := HashPin(input.StaffPin)
		if err != nil {
			return nil, err
		}
		location.StaffPinHash = hash
	}
	if input.AdminPin != "" {
		hash, err := HashPin(input.AdminPin)
		if err != nil {
			return nil, err
		}
		location.AdminPinHash = hash
	}

	if err := s.locationRepo.Create(location); err != nil {
		return nil, err
	}
	return location, nil
}

// Update 更新领取点；提交了新 PIN 时就地轮换
func (s *LocationService) Update(id uint, input LocationInput) (*models.Location, error) {
	location, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if strings.TrimSpace(input.Name) != "" {
		updates["name"] = strings.TrimSpace(input.Name)
	}
	if strings.TrimSpace(input.FullName) != "" {
		updates["full_name"] = strings.TrimSpace(input.FullName)
	}
	if slug := strings.TrimSpace(input.Slug); slug != "" && slug != location.Slug {
		existing, err := s.locationRepo.GetBySlug(slug)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, ErrDuplicateSlug
		}
		updates["slug"] = slug
	}
	if input.Address != "" {
		updates["address"] = input.Address
	}
	if input.City != "" {
		updates["city"] = input.City
	}
	if input.State != "" {
		updates["state"] = input.State
	}
	if input.Zip != "" {
		updates["zip"] = input.Zip
	}
	if input.Phone != "" {
		updates["phone"] = input.Phone
	}
	if input.Active != nil {
		updates["active"] = *input.Active
	}
	if input.SortOrder != nil {
		updates["sort_order"] = *input.SortOrder
	}
	if input.StaffPin != "" {
		hash, err := HashPin(input.StaffPin)
		if err != nil {
			return nil, err
		}
		updates["staff_pin_hash"] = hash
	}
	if input.AdminPin != "" {
		hash, err := HashPin(input.AdminPin)
		if err != nil {
			return nil, err
		}
		updates["admin_pin_hash"] = hash
	}

	if len(updates) > 0 {
		if err := s.locationRepo.Update(id, updates); err != nil {
			return nil, err
		}
	}
	return s.Get(id)
}

var locationSlugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugifyLocation(name string) string {
	slug := locationSlugPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(slug, "-")
}
