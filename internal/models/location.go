package models

import "time"

// Location 自提门店表
type Location struct {
	ID           uint      `gorm:"primarykey" json:"id"`                   // 主键
	Name         string    `gorm:"not null" json:"name"`                   // 门店简称
	FullName     string    `json:"full_name"`                              // 门店全称
	Slug         string    `gorm:"uniqueIndex;not null" json:"slug"`       // URL 标识
	Address      string    `json:"address"`                                // 地址
	City         string    `json:"city"`                                   // 城市
	State        string    `json:"state"`                                  // 州/省
	Zip          string    `json:"zip"`                                    // 邮编
	Phone        string    `json:"phone,omitempty"`                        // 电话
	Active       bool      `gorm:"index;not null;default:true" json:"active"` // 是否对客户可见
	SortOrder    int       `gorm:"index;not null;default:0" json:"sort_order"` // 展示排序
	StaffPinHash string    `gorm:"type:varchar(100)" json:"-"`             // 店员 PIN 哈希
	AdminPinHash string    `gorm:"type:varchar(100)" json:"-"`             // 管理员 PIN 哈希
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`                // 更新时间
}

// TableName 指定表名
func (Location) TableName() string {
	return "locations"
}
