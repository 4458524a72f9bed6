package staff

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

// certificateCommonErrorRules 查询/流转共用的映射
var certificateCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCertificateNotFound, code: response.CodeNotFound, msg: "certificate not found"},
	{target: service.ErrInvalidTransition, code: response.CodeUnprocessable, msg: "invalid status transition"},
	{target: service.ErrStatusConflict, code: response.CodeConflict, msg: "certificate changed, refresh and retry"},
	{target: service.ErrCertificateVoided, code: response.CodeGone, msg: "certificate voided"},
	{target: service.ErrCertificateFetchFailed, code: response.CodeInternal, msg: "certificate store unavailable, data may be stale"},
}
