package service

import (
	"strings"
	"time"

	"github.com/vaultpass/internal/config"
	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// PinAuthService PIN 登录：门店终端用共享 PIN 换取能力令牌
type PinAuthService struct {
	cfg          *config.Config
	locationRepo repository.LocationRepository
}

// NewPinAuthService 创建 PIN 认证服务
func NewPinAuthService(cfg *config.Config, locationRepo repository.LocationRepository) *PinAuthService {
	return &PinAuthService{cfg: cfg, locationRepo: locationRepo}
}

// PinClaims 能力令牌声明：角色 + 门店作用域
type PinClaims struct {
	LocationID   uint   `json:"location_id"`
	LocationSlug string `json:"location_slug"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// PinSession PIN 登录结果
type PinSession struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Role      string           `json:"role"`
	Location  *models.Location `json:"location"`
}

// HashPin 使用 bcrypt 加密 PIN
func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login 校验门店 PIN 并签发会话令牌。
// mode 取 staff / admin，分别对两把独立的共享密钥比对。
func (s *PinAuthService) Login(locationID uint, pin, mode string) (*PinSession, error) {
	role := constants.ActorRoleStaff
	if strings.EqualFold(strings.TrimSpace(mode), constants.ActorRoleAdmin) {
		role = constants.ActorRoleAdmin
	}

	location, err := s.locationRepo.GetByID(locationID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrLocationNotFound
	}
	if !location.Active {
		return nil, ErrLocationInactive
	}

	hash := location.StaffPinHash
	if role == constants.ActorRoleAdmin {
		hash = location.AdminPinHash
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
		return nil, ErrInvalidPin
	}

	token, expiresAt, err := s.generateToken(location, role)
	if err != nil {
		return nil, err
	}
	return &PinSession{
		Token:     token,
		ExpiresAt: expiresAt,
		Role:      role,
		Location:  location,
	}, nil
}

func (s *PinAuthService) generateToken(location *models.Location, role string) (string, time.Time, error) {
	expireHours := s.cfg.JWT.ExpireHours
	if expireHours <= 0 {
		expireHours = 12
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)
	claims := PinClaims{
		LocationID:   location.ID,
		LocationSlug: location.Slug,
		Role:         role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken 解析并校验会话令牌
func (s *PinAuthService) ParseToken(tokenString string) (*PinClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &PinClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*PinClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
