package models

import "time"

// AuditLog 证书操作审计表（只追加，不修改不删除）
type AuditLog struct {
	ID            uint      `gorm:"primarykey" json:"id"`                   // 主键
	CertificateID uint      `gorm:"index;not null" json:"certificate_id"`   // 证书ID
	Action        string    `gorm:"index;not null" json:"action"`           // 动作
	PerformedBy   *string   `json:"performed_by,omitempty"`                 // 操作者（nil 表示系统）
	PerformedRole string    `json:"performed_role,omitempty"`               // 操作者角色
	PerformedAt   time.Time `gorm:"index;not null" json:"performed_at"`     // 操作时间
	MetadataJSON  JSON      `gorm:"type:json" json:"metadata,omitempty"`    // 附加信息（如 POS 交易号）
}

// TableName 指定表名
func (AuditLog) TableName() string {
	return "audit_logs"
}
