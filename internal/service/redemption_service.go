package service

import (
	"context"
	"strings"
	"time"

	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/notifier"
	"github.com/vaultpass/internal/repository"

	"gorm.io/gorm"
)

// RedemptionService 核销协议：把扫码输入变成一次至多成功一次的核销
type RedemptionService struct {
	certRepo     repository.CertificateRepository
	locationRepo repository.LocationRepository
	auditRepo    repository.AuditLogRepository
	hub          *notifier.Hub
}

// NewRedemptionService 创建核销服务
func NewRedemptionService(certRepo repository.CertificateRepository, locationRepo repository.LocationRepository, auditRepo repository.AuditLogRepository, hub *notifier.Hub) *RedemptionService {
	return &RedemptionService{
		certRepo:     certRepo,
		locationRepo: locationRepo,
		auditRepo:    auditRepo,
		hub:          hub,
	}
}

// RedeemInput 核销输入
type RedeemInput struct {
	// Token 扫码或手输的内容
	Token string
	// POSTransactionID 收银系统流水号，必填
	POSTransactionID string
	// LocationID 当前核销门店
	LocationID uint
	// StaffID 可选的门店操作员标识
	StaffID string
}

// RedeemResult 核销结果
type RedeemResult struct {
	Certificate *models.Certificate `json:"certificate"`
	// Discount 按零售价与成交价差额算出的现场抵扣（下限 0），只展示不落库
	Discount models.Money `json:"discount"`
	// RedeemedAt 本次核销时刻
	RedeemedAt time.Time `json:"redeemed_at"`
}

// redeemFailure 核销失败的附加上下文（随错误一起透出给操作员）
type redeemFailure struct {
	err error
	// Detail 人读信息：已核销时刻、作废原因、应去的门店名等
	Detail string
}

func (f *redeemFailure) Error() string { return f.err.Error() }
func (f *redeemFailure) Unwrap() error { return f.err }

// RedeemFailureDetail 取出错误里随附的人读信息
func RedeemFailureDetail(err error) string {
	if failure, ok := err.(*redeemFailure); ok {
		return failure.Detail
	}
	return ""
}

// Redeem 执行核销协议。校验按固定顺序短路：
// 令牌格式、证书存在、未核销、未作废、未过期、门店匹配、流水号必填、状态可核销；
// 全部通过后用条件更新一次性完成复核与落锁，并发核销至多一家成功。
func (s *RedemptionService) Redeem(input RedeemInput) (*RedeemResult, error) {
	number, err := DecodeScanToken(input.Token)
	if err != nil {
		return nil, err
	}

	cert, err := s.certRepo.GetByNumber(number)
	if err != nil {
		logger.Errorw("redeem fetch failed", "error", err, "certificate_number", number)
		return nil, ErrCertificateFetchFailed
	}
	if cert == nil {
		return nil, ErrCertificateNotFound
	}

	if isSuccessTerminalCertStatus(cert.Status) || cert.RedeemedAt != nil {
		detail := ""
		if cert.RedeemedAt != nil {
			detail = cert.RedeemedAt.Format(time.RFC3339)
		}
		return nil, &redeemFailure{err: ErrAlreadyRedeemed, Detail: detail}
	}
	if cert.Voided {
		return nil, &redeemFailure{err: ErrCertificateVoided, Detail: cert.VoidedReason}
	}
	now := time.Now()
	if isFailureTerminalCertStatus(cert.Status) || (cert.ExpiresAt != nil && cert.ExpiresAt.Before(now)) {
		return nil, ErrCertificateExpired
	}
	if cert.ClaimLocationID != nil && *cert.ClaimLocationID != input.LocationID {
		detail := ""
		if location, err := s.locationRepo.GetByID(*cert.ClaimLocationID); err == nil && location != nil {
			detail = location.FullName
			if detail == "" {
				detail = location.Name
			}
		}
		return nil, &redeemFailure{err: ErrLocationMismatch, Detail: detail}
	}
	if strings.TrimSpace(input.POSTransactionID) == "" {
		return nil, ErrTransactionRequired
	}

	// 核销只走状态图里的两条成功边：ready→picked_up、active→redeemed，
	// 备货流程未到 ready 的证书不可核销
	from := normalizeCertStatus(cert.Status)
	var target string
	switch from {
	case constants.CertStatusReady:
		target = constants.CertStatusPickedUp
	case constants.CertStatusActive:
		target = constants.CertStatusRedeemed
	default:
		return nil, ErrInvalidTransition
	}

	// 终写：条件更新在同一语句里复核状态、未作废、未核销，
	// 赢家只有一个，输家拿到 AlreadyRedeemed

	var locationSlug string
	if location, err := s.locationRepo.GetByID(input.LocationID); err == nil && location != nil {
		locationSlug = location.Slug
	}

	updates := statusTimestampUpdates(target, now)
	updates["redeemed_location"] = locationSlug
	updates["redeemed_by_staff"] = input.StaffID
	updates["pos_transaction_id"] = input.POSTransactionID

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.certRepo.WithTx(tx).RedeemIf(number, from, target, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return &redeemFailure{err: ErrAlreadyRedeemed}
		}
		performedBy := (*string)(nil)
		if strings.TrimSpace(input.StaffID) != "" {
			staffID := input.StaffID
			performedBy = &staffID
		}
		return s.auditRepo.WithTx(tx).Create(&models.AuditLog{
			CertificateID: cert.ID,
			Action:        constants.AuditActionRedeemed,
			PerformedBy:   performedBy,
			PerformedRole: constants.ActorRoleStaff,
			PerformedAt:   now,
			MetadataJSON: models.JSON{
				"from":               from,
				"to":                 target,
				"pos_transaction_id": input.POSTransactionID,
				"location_id":        input.LocationID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.certRepo.GetByNumber(number)
	if err != nil || updated == nil {
		logger.Errorw("redeem refetch failed", "error", err, "certificate_number", number)
		return nil, ErrCertificateFetchFailed
	}

	if s.hub != nil {
		s.hub.Publish(context.Background(), notifier.Event{
			CertificateID:     updated.ID,
			CertificateNumber: updated.CertificateNumber,
			From:              from,
			To:                target,
			Actor:             staffActorLabel(input.StaffID),
			At:                now,
		})
	}

	return &RedeemResult{
		Certificate: updated,
		Discount:    updated.Discount(),
		RedeemedAt:  now,
	}, nil
}

func staffActorLabel(staffID string) string {
	if strings.TrimSpace(staffID) == "" {
		return constants.ActorRoleStaff
	}
	return constants.ActorRoleStaff + ":" + staffID
}
