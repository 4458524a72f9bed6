package admin

import (
	"errors"

	"github.com/vaultpass/internal/http/handlers/shared"
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			shared.RespondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	shared.RespondError(c, fallbackCode, fallbackMsg, err)
}

var certificateErrorRules = []mappedHandlerError{
	{target: service.ErrCertificateNotFound, code: response.CodeNotFound, msg: "certificate not found"},
	{target: service.ErrInvalidTransition, code: response.CodeUnprocessable, msg: "invalid status transition"},
	{target: service.ErrStatusConflict, code: response.CodeConflict, msg: "certificate changed, refresh and retry"},
	{target: service.ErrCertificateNotVoidable, code: response.CodeUnprocessable, msg: "redeemed certificate cannot be voided"},
	{target: service.ErrDuplicateCertificateNumber, code: response.CodeInternal, msg: "certificate number collision, retry"},
	{target: service.ErrLocationNotFound, code: response.CodeNotFound, msg: "location not found"},
	{target: service.ErrLocationInactive, code: response.CodeUnprocessable, msg: "location is inactive"},
	{target: service.ErrCertificateFetchFailed, code: response.CodeInternal, msg: "certificate store unavailable, data may be stale"},
}

var locationErrorRules = []mappedHandlerError{
	{target: service.ErrLocationNotFound, code: response.CodeNotFound, msg: "location not found"},
	{target: service.ErrDuplicateSlug, code: response.CodeConflict, msg: "location slug already in use"},
}
