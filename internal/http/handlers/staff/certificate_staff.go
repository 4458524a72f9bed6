package staff

import (
	"strconv"

	"github.com/vaultpass/internal/http/handlers/shared"
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/repository"
	"github.com/vaultpass/internal/service"

	"github.com/gin-gonic/gin"
)

// GetQueue 本门店的证书工作队列，按状态页签过滤
func (h *Handler) GetQueue(c *gin.Context) {
	claims, ok := shared.SessionClaims(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	filter := repository.CertificateListFilter{
		Page:              page,
		PageSize:          pageSize,
		ClaimLocationID:   claims.LocationID,
		Status:            c.Query("status"),
		WithClaimLocation: true,
	}
	certs, total, err := h.CertificateService.List(filter)
	if err != nil {
		respondWithMappedError(c, err, certificateCommonErrorRules, response.CodeInternal, "list certificates failed")
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
		respondWithMappedError(c, err, certificateCommonErrorRules, response.CodeInternal, "get certificate failed")
		return
	}
	response.Success(c, cert)
}

// transitionRequest 状态流转请求
type transitionRequest struct {
	Target string `json:"target" binding:"required"`
	// ObservedStatus 终端最近一次读到的状态，用作乐观并发前置条件
	ObservedStatus string `json:"observed_status"`
}

// Transition 门店推进备货流水线（pending / preparing / ready ...）
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
		respondWithMappedError(c, err, certificateCommonErrorRules, response.CodeInternal, "transition failed")
		return
	}
	response.Success(c, cert)
}

// InventoryReturn 登记已取消证书的库存回收
func (h *Handler) InventoryReturn(c *gin.Context) {
	claims, ok := shared.SessionClaims(c)
	if !ok {
		return
	}

	cert, err := h.CertificateService.InventoryReturn(c.Param("number"), shared.SessionActor(claims))
	if err != nil {
		rules := append([]mappedHandlerError{
			{target: service.ErrInventoryNotReturnable, code: response.CodeUnprocessable, msg: "certificate is not awaiting inventory return"},
		}, certificateCommonErrorRules...)
		respondWithMappedError(c, err, rules, response.CodeInternal, "inventory return failed")
		return
	}
	response.Success(c, cert)
}

// Events 门店端证书变更 SSE 流
func (h *Handler) Events(c *gin.Context) {
	shared.StreamEvents(c, h.Hub)
}
