package staff

import (
	"errors"

	"github.com/vaultpass/internal/http/handlers/shared"
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/service"

	"github.com/gin-gonic/gin"
)

// redeemRequest 核销请求
type redeemRequest struct {
	// Token 扫码枪读出的内容或手输的证书编号
	Token string `json:"token" binding:"required"`
	// POSTransactionID 收银流水号，必填
	POSTransactionID string `json:"pos_transaction_id"`
	// StaffID 可选的操作员标识
	StaffID string `json:"staff_id"`
}

// redeemErrorRules 校验失败对操作员逐字透出，不自动重试
var redeemErrorRules = []mappedHandlerError{
	{target: service.ErrMalformedToken, code: response.CodeBadRequest, msg: "scan token is malformed"},
	{target: service.ErrCertificateNotFound, code: response.CodeNotFound, msg: "certificate not found"},
	{target: service.ErrAlreadyRedeemed, code: response.CodeConflict, msg: "certificate already redeemed"},
	{target: service.ErrCertificateVoided, code: response.CodeGone, msg: "certificate voided"},
	{target: service.ErrCertificateExpired, code: response.CodeGone, msg: "certificate expired"},
	{target: service.ErrLocationMismatch, code: response.CodeUnprocessable, msg: "certificate belongs to another location"},
	{target: service.ErrTransactionRequired, code: response.CodeBadRequest, msg: "pos transaction id required"},
	{target: service.ErrInvalidTransition, code: response.CodeConflict, msg: "certificate not ready for redemption"},
	{target: service.ErrStatusConflict, code: response.CodeConflict, msg: "certificate changed, refresh and retry"},
	{target: service.ErrCertificateFetchFailed, code: response.CodeInternal, msg: "certificate store unavailable, data may be stale"},
}

// Redeem 执行核销协议，成功时返回证书与应抵扣金额
func (h *Handler) Redeem(c *gin.Context) {
	claims, ok := shared.SessionClaims(c)
	if !ok {
		return
	}
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	staffID := req.StaffID
	if staffID == "" {
		staffID = claims.LocationSlug
	}
	result, err := h.RedemptionService.Redeem(service.RedeemInput{
		Token:            req.Token,
		POSTransactionID: req.POSTransactionID,
		LocationID:       claims.LocationID,
		StaffID:          staffID,
	})
	if err != nil {
		// 随错误透出人读细节：已核销时刻、作废原因、应去门店名
		if detail := service.RedeemFailureDetail(err); detail != "" {
			for _, rule := range redeemErrorRules {
				if errors.Is(err, rule.target) {
					shared.RespondErrorWithData(c, rule.code, rule.msg, gin.H{"detail": detail}, nil)
					return
				}
			}
		}
		respondWithMappedError(c, err, redeemErrorRules, response.CodeInternal, "redeem failed")
		return
	}

	response.Success(c, result)
}
