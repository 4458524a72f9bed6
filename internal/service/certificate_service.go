package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/vaultpass/internal/constants"
	"github.com/vaultpass/internal/logger"
	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/notifier"
	"github.com/vaultpass/internal/queue"
	"github.com/vaultpass/internal/repository"

	"gorm.io/gorm"
)

// Actor 操作者身份，ID 为空表示系统动作
type Actor struct {
	ID   string
	Role string
}

// SystemActor 系统操作者（自动清扫等）
var SystemActor = Actor{Role: constants.ActorRoleSystem}

// CertificateService 证书服务：签发、状态流转、作废与库存回收
type CertificateService struct {
	certRepo     repository.CertificateRepository
	locationRepo repository.LocationRepository
	auditRepo    repository.AuditLogRepository
	queueClient  *queue.Client
	hub          *notifier.Hub
	workflow     string
	claimWindow  time.Duration
}

// NewCertificateService 创建证书服务
func NewCertificateService(certRepo repository.CertificateRepository, locationRepo repository.LocationRepository, auditRepo repository.AuditLogRepository, queueClient *queue.Client, hub *notifier.Hub, workflow string, claimWindowHours int) *CertificateService {
	if workflow != constants.WorkflowDirect {
		workflow = constants.WorkflowPrep
	}
	if claimWindowHours <= 0 {
		claimWindowHours = 72
	}
	return &CertificateService{
		certRepo:     certRepo,
		locationRepo: locationRepo,
		auditRepo:    auditRepo,
		queueClient:  queueClient,
		hub:          hub,
		workflow:     workflow,
		claimWindow:  time.Duration(claimWindowHours) * time.Hour,
	}
}

// IssueCertificateInput 签发证书输入（价格在上游拍卖结算时已定）
type IssueCertificateInput struct {
	OwnerID          string
	AuctionID        string
	PackageName      string
	PackageItemsJSON models.JSON
	ClaimLocationID  uint
	OriginalPrice    models.Money
	FinalPrice       models.Money
	RetailValue      models.Money
	ExpiresAt        *time.Time
	PickupBy         *time.Time
	AdminNotes       string
}

// TransitionInput 状态流转输入
type TransitionInput struct {
	Target string
	// Observed 调用方最近一次读到的状态，非空时用作乐观并发前置条件
	Observed string
	Actor    Actor
	// Action 审计动作，空则记 status_changed
	Action string
	// Extra 随状态一并写入的列
	Extra map[string]interface{}
	// Metadata 附加审计元数据
	Metadata models.JSON
}

// Issue 签发证书：生成证书编号与扫码载荷，按部署流程形态落初始状态，
// 记审计并调度到期取消任务。
func (s *CertificateService) Issue(input IssueCertificateInput) (*models.Certificate, error) {
	now := time.Now()
	expiresAt := input.ExpiresAt
	if expiresAt == nil {
		deadline := now.Add(s.claimWindow)
		expiresAt = &deadline
	}

	initialStatus := constants.CertStatusNew
	if s.workflow == constants.WorkflowDirect {
		initialStatus = constants.CertStatusActive
	}

	var claimLocationID *uint
	if input.ClaimLocationID != 0 {
		location, err := s.locationRepo.GetByID(input.ClaimLocationID)
		if err != nil {
			return nil, err
		}
		if location == nil {
			return nil, ErrLocationNotFound
		}
		claimLocationID = &input.ClaimLocationID
	}

	var cert *models.Certificate
	// 编号撞库概率极低，冲突时换号重试
	for attempt := 0; attempt < 3; attempt++ {
		number := generateCertificateNumber(now)
		qrPayload, err := json.Marshal(map[string]string{"certificate_number": number})
		if err != nil {
			return nil, err
		}
		candidate := &models.Certificate{
			CertificateNumber: number,
			QRCodeData:        string(qrPayload),
			AuctionID:         input.AuctionID,
			OwnerID:           input.OwnerID,
			PackageName:       input.PackageName,
			PackageItemsJSON:  input.PackageItemsJSON,
			ClaimLocationID:   claimLocationID,
			OriginalPrice:     input.OriginalPrice,
			FinalPrice:        input.FinalPrice,
			RetailValue:       input.RetailValue,
			Status:            initialStatus,
			ExpiresAt:         expiresAt,
			PickupBy:          input.PickupBy,
			AdminNotes:        input.AdminNotes,
		}
		existing, err := s.certRepo.GetByNumber(number)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		if err := s.certRepo.Create(candidate); err != nil {
			return nil, err
		}
		cert = candidate
		break
	}
	if cert == nil {
		return nil, ErrDuplicateCertificateNumber
	}

	if err := s.auditRepo.Create(&models.AuditLog{
		CertificateID: cert.ID,
		Action:        constants.AuditActionIssued,
		PerformedBy:   actorID(SystemActor),
		PerformedRole: SystemActor.Role,
		PerformedAt:   now,
		MetadataJSON: models.JSON{
			"status":     initialStatus,
			"expires_at": expiresAt.Format(time.RFC3339),
		},
	}); err != nil {
		logger.Errorw("issue audit append failed", "error", err, "certificate_number", cert.CertificateNumber)
	}

	if s.queueClient.Enabled() {
		delay := time.Until(*expiresAt)
		if err := s.queueClient.EnqueueCertTimeoutCancel(queue.CertTimeoutCancelPayload{CertificateID: cert.ID}, delay); err != nil {
			logger.Warnw("enqueue timeout cancel failed", "error", err, "certificate_id", cert.ID)
		}
	}

	s.publish(cert, "", initialStatus, SystemActor, now)
	return cert, nil
}

// GetByNumber 按编号获取证书（含领取点）
func (s *CertificateService) GetByNumber(number string) (*models.Certificate, error) {
	cert, err := s.certRepo.GetByNumber(strings.TrimSpace(number))
	if err != nil {
		logger.Errorw("certificate fetch failed", "error", err, "certificate_number", number)
		return nil, ErrCertificateFetchFailed
	}
	if cert == nil {
		return nil, ErrCertificateNotFound
	}
	return cert, nil
}

// List 按条件分页列出证书
func (s *CertificateService) List(filter repository.CertificateListFilter) ([]models.Certificate, int64, error) {
	certs, total, err := s.certRepo.List(filter)
	if err != nil {
		logger.Errorw("certificate list failed", "error", err)
		return nil, 0, ErrCertificateFetchFailed
	}
	return certs, total, nil
}

// Transition 执行一次状态流转：校验状态图与乐观并发前置条件，
// 在同一事务里写状态与审计，提交后广播变更事件。
func (s *CertificateService) Transition(number string, input TransitionInput) (*models.Certificate, error) {
	cert, err := s.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	return s.transitionCert(cert, input)
}

// TransitionByID 按证书 ID 执行状态流转（worker 侧使用）
func (s *CertificateService) TransitionByID(id uint, input TransitionInput) (*models.Certificate, error) {
	cert, err := s.certRepo.GetByID(id)
	if err != nil {
		logger.Errorw("certificate fetch failed", "error", err, "certificate_id", id)
		return nil, ErrCertificateFetchFailed
	}
	if cert == nil {
		return nil, ErrCertificateNotFound
	}
	return s.transitionCert(cert, input)
}

func (s *CertificateService) transitionCert(cert *models.Certificate, input TransitionInput) (*models.Certificate, error) {
	target := normalizeCertStatus(input.Target)
	from := normalizeCertStatus(cert.Status)

	if input.Observed != "" && normalizeCertStatus(input.Observed) != from {
		return nil, ErrStatusConflict
	}
	if cert.Voided && isSuccessTerminalCertStatus(target) {
		return nil, ErrCertificateVoided
	}
	if !canTransitionCert(from, target) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	updates := statusTimestampUpdates(target, now)
	for k, v := range input.Extra {
		updates[k] = v
	}

	action := input.Action
	if action == "" {
		action = constants.AuditActionStatusChanged
	}
	metadata := models.JSON{"from": from, "to": target}
	for k, v := range input.Metadata {
		metadata[k] = v
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.certRepo.WithTx(tx).UpdateStatusIf(cert.ID, from, target, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrStatusConflict
		}
		return s.auditRepo.WithTx(tx).Create(&models.AuditLog{
			CertificateID: cert.ID,
			Action:        action,
			PerformedBy:   actorID(input.Actor),
			PerformedRole: input.Actor.Role,
			PerformedAt:   now,
			MetadataJSON:  metadata,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(cert, from, target, input.Actor, now)
	return s.certRepo.GetByID(cert.ID)
}

// Assign 管理员把新证书指派到领取点（new→assigned），附带备注
func (s *CertificateService) Assign(number string, claimLocationID uint, notes string, actor Actor) (*models.Certificate, error) {
	location, err := s.locationRepo.GetByID(claimLocationID)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, ErrLocationNotFound
	}
	if !location.Active {
		return nil, ErrLocationInactive
	}

	extra := map[string]interface{}{"claim_location_id": claimLocationID}
	if strings.TrimSpace(notes) != "" {
		extra["admin_notes"] = notes
	}
	return s.Transition(number, TransitionInput{
		Target:   constants.CertStatusAssigned,
		Observed: constants.CertStatusNew,
		Actor:    actor,
		Action:   constants.AuditActionAssigned,
		Extra:    extra,
		Metadata: models.JSON{"claim_location_id": claimLocationID, "location_slug": location.Slug},
	})
}

// Void 作废证书。作废是独立于状态图的标记：已成功核销的证书不可作废，
// 其余状态都可以；作废后成功终态不再可达。
func (s *CertificateService) Void(number, reason string, actor Actor) (*models.Certificate, error) {
	cert, err := s.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	if isSuccessTerminalCertStatus(cert.Status) || cert.RedeemedAt != nil {
		return nil, ErrCertificateNotVoidable
	}

	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.certRepo.WithTx(tx).UpdateFields(cert.ID, map[string]interface{}{
			"voided":        true,
			"voided_reason": reason,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Create(&models.AuditLog{
			CertificateID: cert.ID,
			Action:        constants.AuditActionVoided,
			PerformedBy:   actorID(actor),
			PerformedRole: actor.Role,
			PerformedAt:   now,
			MetadataJSON:  models.JSON{"reason": reason},
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(cert, cert.Status, cert.Status, actor, now)
	return s.certRepo.GetByID(cert.ID)
}

// UpdateNotes 更新管理备注
func (s *CertificateService) UpdateNotes(number, notes string, actor Actor) (*models.Certificate, error) {
	cert, err := s.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.certRepo.WithTx(tx).UpdateFields(cert.ID, map[string]interface{}{
			"admin_notes": notes,
			"updated_at":  now,
		}); err != nil {
			return err
		}
		return s.auditRepo.WithTx(tx).Create(&models.AuditLog{
			CertificateID: cert.ID,
			Action:        constants.AuditActionNotesUpdated,
			PerformedBy:   actorID(actor),
			PerformedRole: actor.Role,
			PerformedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.certRepo.GetByID(cert.ID)
}

// InventoryReturn 登记已取消证书的库存回收，仅失败终态且未回收过的证书可操作
func (s *CertificateService) InventoryReturn(number string, actor Actor) (*models.Certificate, error) {
	cert, err := s.GetByNumber(number)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.certRepo.WithTx(tx).MarkInventoryReturnedIf(cert.ID, map[string]interface{}{
			"inventory_returned_at": now,
			"inventory_returned_by": actor.ID,
			"updated_at":            now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInventoryNotReturnable
		}
		return s.auditRepo.WithTx(tx).Create(&models.AuditLog{
			CertificateID: cert.ID,
			Action:        constants.AuditActionInventoryReturn,
			PerformedBy:   actorID(actor),
			PerformedRole: actor.Role,
			PerformedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(cert, cert.Status, cert.Status, actor, now)
	return s.certRepo.GetByID(cert.ID)
}

// AuditLogs 列出一张证书的审计日志
func (s *CertificateService) AuditLogs(number string) ([]models.AuditLog, error) {
	cert, err := s.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	return s.auditRepo.ListByCertificate(cert.ID)
}

// PendingCancelledClaims 按领取点汇总待回收的已取消证书
func (s *CertificateService) PendingCancelledClaims() ([]repository.CancelledClaimsRow, error) {
	rows, err := s.certRepo.PendingCancelledClaimsByLocation()
	if err != nil {
		logger.Errorw("pending cancelled claims failed", "error", err)
		return nil, ErrCertificateFetchFailed
	}
	return rows, nil
}

func (s *CertificateService) publish(cert *models.Certificate, from, to string, actor Actor, at time.Time) {
	if s.hub == nil {
		return
	}
	actorLabel := actor.Role
	if actor.ID != "" {
		actorLabel = fmt.Sprintf("%s:%s", actor.Role, actor.ID)
	}
	s.hub.Publish(context.Background(), notifier.Event{
		CertificateID:     cert.ID,
		CertificateNumber: cert.CertificateNumber,
		From:              from,
		To:                to,
		Actor:             actorLabel,
		At:                at,
	})
}

func actorID(actor Actor) *string {
	if strings.TrimSpace(actor.ID) == "" {
		return nil
	}
	id := actor.ID
	return &id
}

// generateCertificateNumber 生成证书编号：前缀 + 日期段 + 随机字母数字后缀
func generateCertificateNumber(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", constants.CertNumberPrefix, now.Format(constants.CertNumberDateLayout), randAlnum(constants.CertNumberSuffixLength))
}

const alnumAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randAlnum(length int) string {
	var b strings.Builder
	max := big.NewInt(int64(len(alnumAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteByte(alnumAlphabet[n.Int64()])
	}
	return b.String()
}
