package admin

import (
	"strconv"
	"time"

	"github.com/vaultpass/internal/http/handlers/shared"
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/models"
	"github.com/vaultpass/internal/repository"
	"github.com/vaultpass/internal/service"

	"github.com/gin-gonic/gin"
)

// issueCertificateRequest 签发证书请求
type issueCertificateRequest struct {
	OwnerID         string       `json:"owner_id" binding:"required"`
	AuctionID       string       `json:"auction_id"`
	PackageName     string       `json:"package_name" binding:"required"`
	PackageItems    models.JSON  `json:"package_items"`
	ClaimLocationID uint         `json:"claim_location_id"`
	OriginalPrice   models.Money `json:"original_price"`
	FinalPrice      models.Money `json:"final_price"`
	RetailValue     models.Money `json:"retail_value"`
	ExpiresAt       *time.Time   `json:"expires_at"`
	PickupBy        *time.Time   `json:"pickup_by"`
	AdminNotes      string       `json:"admin_notes"`
}

// IssueCertificate 签发一张新证书
func (h *Handler) IssueCertificate(c *gin.Context) {
	var req issueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	cert, err := h.CertificateService.Issue(service.IssueCertificateInput{
		OwnerID:          req.OwnerID,
		AuctionID:        req.AuctionID,
		PackageName:      req.PackageName,
		PackageItemsJSON: req.PackageItems,
		ClaimLocationID:  req.ClaimLocationID,
		OriginalPrice:    req.OriginalPrice,
		FinalPrice:       req.FinalPrice,
		RetailValue:      req.RetailValue,
		ExpiresAt:        req.ExpiresAt,
		PickupBy:         req.PickupBy,
		AdminNotes:       req.AdminNotes,
	})
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "issue certificate failed")
		return
	}
	response.Success(c, cert)
}

// ListCertificates 全量证书检索，支持状态、门店、买家等维度过滤
func (h *Handler) ListCertificates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	locationID, _ := strconv.ParseUint(c.Query("claim_location_id"), 10, 64)
	filter := repository.CertificateListFilter{
		Page:              page,
		PageSize:          pageSize,
		Status:            c.Query("status"),
		ClaimLocationID:   uint(locationID),
		OwnerID:           c.Query("owner_id"),
		CertificateNumber: c.Query("certificate_number"),
		OnlyUnredeemed:    c.Query("only_unredeemed") == "true",
		OnlyUnvoided:      c.Query("only_unvoided") == "true",
		WithClaimLocation: true,
	}
	if from, err := time.Parse(time.RFC3339, c.Query("expires_from")); err == nil {
		filter.ExpiresFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("expires_to")); err == nil {
		filter.ExpiresTo = &to
	}

	certs, total, err := h.CertificateService.List(filter)
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "list certificates failed")
		return
	}
	response.SuccessWithPage(c, certs, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: shared.TotalPages(total, pageSize),
	})
}

// GetCertificate 按编号查看单张证书
func (h *Handler) GetCertificate(c *gin.Context) {
	cert, err := h.CertificateService.GetByNumber(c.Param("number"))
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "get certificate failed")
		return
	}
	response.Success(c, cert)
}

// assignRequest 指派领取点请求
type assignRequest struct {
	ClaimLocationID uint   `json:"claim_location_id" binding:"required"`
	AdminNotes      string `json:"admin_notes"`
}

// Assign 把新签发的证书指派到领取点
func (h *Handler) Assign(c *gin.Context) {
	claims, ok := shared.SessionClaims(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	cert, err := h.CertificateService.Assign(c.Param("number"), req.ClaimLocationID, req.AdminNotes, shared.SessionActor(claims))
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "assign certificate failed")
		return
	}
	response.Success(c, cert)
}

// transitionRequest 管理端状态流转请求
type transitionRequest struct {
	Target         string `json:"target" binding:"required"`
	ObservedStatus string `json:"observed_status"`
}

// Transition 管理端状态流转，含取消
func (h *Handler) Transition(c *gin.Context) {
	claims, ok := shared.SessionClaims(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	cert, err := h.CertificateService.Transition(c.Param("number"), service.TransitionInput{
		Target:   req.Target,
		Observed: req.ObservedStatus,
		Actor:    shared.SessionActor(claims),
	})
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "transition failed")
		return
	}
	response.Success(c, cert)
}

// voidRequest 作废请求
type voidRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Void 作废证书，永久拒绝后续核销
func (h *Handler) Void(c *gin.Context) {
	claims, ok := shared.SessionClaims(c)
	if !ok {
		return
	}
	var req voidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	cert, err := h.CertificateService.Void(c.Param("number"), req.Reason, shared.SessionActor(claims))
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "void certificate failed")
		return
	}
	response.Success(c, cert)
}

// notesRequest 更新备注请求
type notesRequest struct {
	AdminNotes string `json:"admin_notes"`
}

// UpdateNotes 更新运营备注
func (h *Handler) UpdateNotes(c *gin.Context) {
	claims, ok := shared.SessionClaims(c)
	if !ok {
		return
	}
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	cert, err := h.CertificateService.UpdateNotes(c.Param("number"), req.AdminNotes, shared.SessionActor(claims))
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "update notes failed")
		return
	}
	response.Success(c, cert)
}

// Sweep 手动触发到期清扫，返回本次取消数量
func (h *Handler) Sweep(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	cancelled, err := h.SweepService.Sweep(limit)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "expiry sweep failed", err)
		return
	}
	response.Success(c, gin.H{"cancelled_count": cancelled})
}

// CancelledClaims 按门店汇总待回收库存的已取消证书
func (h *Handler) CancelledClaims(c *gin.Context) {
	rows, err := h.CertificateService.PendingCancelledClaims()
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "list cancelled claims failed", err)
		return
	}
	response.Success(c, rows)
}

// GetCertificateAuditLogs 单证书的全量审计轨迹
func (h *Handler) GetCertificateAuditLogs(c *gin.Context) {
	logs, err := h.CertificateService.AuditLogs(c.Param("number"))
	if err != nil {
		respondWithMappedError(c, err, certificateErrorRules, response.CodeInternal, "get audit logs failed")
		return
	}
	response.Success(c, logs)
}

// ListAuditLogs 全局审计日志检索
func (h *Handler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	certID, _ := strconv.ParseUint(c.Query("certificate_id"), 10, 64)
	filter := repository.AuditLogListFilter{
		Page:          page,
		PageSize:      pageSize,
		CertificateID: uint(certID),
		Action:        c.Query("action"),
		PerformedBy:   c.Query("performed_by"),
		PerformedRole: c.Query("performed_role"),
	}
	if from, err := time.Parse(time.RFC3339, c.Query("performed_from")); err == nil {
		filter.PerformedFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("performed_to")); err == nil {
		filter.PerformedTo = &to
	}

	logs, total, err := h.AuditService.List(filter)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, "list audit logs failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: shared.TotalPages(total, pageSize),
	})
}

// Events 管理端证书变更 SSE 流
func (h *Handler) Events(c *gin.Context) {
	shared.StreamEvents(c, h.Hub)
}
