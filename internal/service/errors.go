package service

import "errors"

// 服务层哨兵错误，由 handler 层的错误映射表翻译为响应码
var (
	// 核销协议错误（对操作员逐字透出，不自动重试）
	ErrMalformedToken      = errors.New("scan token is malformed")
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrAlreadyRedeemed     = errors.New("certificate already redeemed")
	ErrCertificateVoided   = errors.New("certificate voided")
	ErrCertificateExpired  = errors.New("certificate expired")
	ErrLocationMismatch    = errors.New("certificate belongs to another location")
	ErrTransactionRequired = errors.New("pos transaction id required")

	// 状态机错误
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("certificate status changed concurrently")

	// 存取失败（可重试，前端降级为过期数据提示）
	ErrCertificateFetchFailed = errors.New("certificate fetch failed")

	// 证书管理错误
	ErrDuplicateCertificateNumber = errors.New("certificate number already exists")
	ErrCertificateNotVoidable     = errors.New("certificate cannot be voided")
	ErrInventoryNotReturnable     = errors.New("inventory return not applicable")

	// 领取点与认证错误
	ErrLocationNotFound  = errors.New("location not found")
	ErrLocationInactive  = errors.New("location inactive")
	ErrDuplicateSlug     = errors.New("location slug already exists")
	ErrInvalidPin        = errors.New("invalid pin")
	ErrPinAttemptsLocked = errors.New("too many pin attempts")

	// 队列错误
	ErrQueueUnavailable = errors.New("queue unavailable")
)
