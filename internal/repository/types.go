package repository

import "time"

// CertificateListFilter 查询证书列表的过滤条件
type CertificateListFilter struct {
	Page              int
	PageSize          int
	Status            string
	Statuses          []string
	ClaimLocationID   uint
	OwnerID           string
	CertificateNumber string
	OnlyUnredeemed    bool
	OnlyUnvoided      bool
	ExpiresFrom       *time.Time
	ExpiresTo         *time.Time
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
	WithClaimLocation bool
}

// AuditLogListFilter 查询审计日志的过滤条件
type AuditLogListFilter struct {
	Page          int
	PageSize      int
	CertificateID uint
	Action        string
	PerformedBy   string
	PerformedRole string
	PerformedFrom *time.Time
	PerformedTo   *time.Time
}

// CancelledClaimsRow 按门店汇总的待回收取消证书
type CancelledClaimsRow struct {
	LocationID       uint       `json:"location_id"`
	LocationName     string     `json:"location_name"`
	LocationFullName string     `json:"location_full_name"`
	CancelledCount   int64      `json:"cancelled_count"`
	OldestCancelled  *time.Time `json:"oldest_cancelled"`
}
