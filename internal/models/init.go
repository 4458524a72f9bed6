package models

import (
	"strings"

	"github.com/vaultpass/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// InitDefaultLocation 初始化默认门店（用于空库首次启动）
func InitDefaultLocation(name, staffPin, adminPin string) error {
	var count int64
	DB.Model(&Location{}).Count(&count)
	if count > 0 {
		return nil
	}

	if strings.TrimSpace(name) == "" {
		name = "Main Store"
	}
	if staffPin == "" {
		staffPin = "0000"
	}
	if adminPin == "" {
		adminPin = "0000"
	}
	staffHash, err := bcrypt.GenerateFromPassword([]byte(staffPin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminPin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	location := Location{
		Name:         name,
		FullName:     name,
		Slug:         slugify(name),
		Active:       true,
		StaffPinHash: string(staffHash),
		AdminPinHash: string(adminHash),
	}
	if err := DB.Create(&location).Error; err != nil {
		return err
	}

	if staffPin == "0000" || adminPin == "0000" {
		logger.Warnw("default_location_created_with_default_pins", "name", name)
		logger.Warnw("default_location_pin_change_required", "name", name)
	} else {
		logger.Warnw("default_location_created", "name", name, "pins_hidden", true)
	}
	return nil
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
