package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Certificate 核销证书表（一张中拍即签发一张）
type Certificate struct {
	ID                  uint       `gorm:"primarykey" json:"id"`                                        // 主键
	CertificateNumber   string     `gorm:"uniqueIndex;not null" json:"certificate_number"`              // 证书编号（核销键，签发后不变）
	QRCodeData          string     `gorm:"type:text" json:"qr_code_data"`                               // 扫码载荷
	AuctionID           string     `gorm:"index" json:"auction_id,omitempty"`                           // 竞拍ID（外部引用）
	OwnerID             string     `gorm:"index;not null" json:"owner_id"`                              // 中拍用户ID（外部引用）
	PackageName         string     `json:"package_name,omitempty"`                                      // 礼包名称（展示用）
	PackageItemsJSON    JSON       `gorm:"type:json" json:"package_items,omitempty"`                    // 礼包明细（展示用）
	ClaimLocationID     *uint      `gorm:"index" json:"claim_location_id,omitempty"`                    // 自提门店ID（用户选定前为空）
	OriginalPrice       Money      `gorm:"type:decimal(20,2);not null;default:0" json:"original_price"` // 起拍价
	FinalPrice          Money      `gorm:"type:decimal(20,2);not null;default:0" json:"final_price"`    // 成交价
	RetailValue         Money      `gorm:"type:decimal(20,2);not null;default:0" json:"retail_value"`   // 零售价值
	Status              string     `gorm:"index;not null" json:"status"`                                // 证书状态
	ExpiresAt           *time.Time `gorm:"index" json:"expires_at,omitempty"`                           // 过期时间（空表示永不过期）
	PickupBy            *time.Time `gorm:"index" json:"pickup_by,omitempty"`                            // 自提截止时间
	Voided              bool       `gorm:"index;not null;default:false" json:"voided"`                  // 作废开关（独立于状态图）
	VoidedReason        string     `json:"voided_reason,omitempty"`                                     // 作废原因
	AdminAssignedAt     *time.Time `json:"admin_assigned_at,omitempty"`                                 // 管理员派单时间
	PreparedAt          *time.Time `json:"prepared_at,omitempty"`                                       // 备货完成时间
	PickedUpAt          *time.Time `json:"picked_up_at,omitempty"`                                      // 自提时间
	RedeemedAt          *time.Time `gorm:"index" json:"redeemed_at,omitempty"`                          // 核销时间
	CancelledAt         *time.Time `gorm:"index" json:"cancelled_at,omitempty"`                         // 取消时间
	RedeemedLocation    string     `json:"redeemed_location,omitempty"`                                 // 核销门店名称
	RedeemedByStaff     string     `json:"redeemed_by_staff,omitempty"`                                 // 核销店员
	POSTransactionID    string     `json:"pos_transaction_id,omitempty"`                                // POS 交易号
	InventoryReturned   bool       `gorm:"index;not null;default:false" json:"inventory_returned"`      // 库存已回收
	InventoryReturnedAt *time.Time `json:"inventory_returned_at,omitempty"`                             // 库存回收时间
	InventoryReturnedBy string     `json:"inventory_returned_by,omitempty"`                             // 库存回收操作者
	AdminNotes          string     `gorm:"type:text" json:"admin_notes,omitempty"`                      // 管理员备注
	CreatedAt           time.Time  `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt           time.Time  `gorm:"index" json:"updated_at"`                                     // 更新时间

	// 关联
	ClaimLocation *Location `gorm:"foreignKey:ClaimLocationID" json:"claim_location,omitempty"` // 自提门店
}

// TableName 指定表名
func (Certificate) TableName() string {
	return "certificates"
}

// Discount 计算 POS 端应抵扣金额（零售价值 - 成交价，下限 0）
func (c *Certificate) Discount() Money {
	d := c.RetailValue.Decimal.Sub(c.FinalPrice.Decimal)
	if d.LessThan(decimal.Zero) {
		d = decimal.Zero
	}
	return NewMoneyFromDecimal(d)
}
