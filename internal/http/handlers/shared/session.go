package shared

import (
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/service"

	"github.com/gin-gonic/gin"
)

// 会话上下文键，由 JWT 中间件写入
const (
	ContextSessionClaims = "session_claims"
)

// SessionClaims 从上下文取出 PIN 会话声明，缺失时直接响应 401。
func SessionClaims(c *gin.Context) (*service.PinClaims, bool) {
	value, exists := c.Get(ContextSessionClaims)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "session required", nil)
		return nil, false
	}
	claims, ok := value.(*service.PinClaims)
	if !ok || claims == nil {
		RespondError(c, response.CodeUnauthorized, "session invalid", nil)
		return nil, false
	}
	return claims, true
}

// SessionActor 把会话声明转成审计用的操作者身份。
func SessionActor(claims *service.PinClaims) service.Actor {
	if claims == nil {
		return service.SystemActor
	}
	return service.Actor{
		ID:   claims.LocationSlug,
		Role: claims.Role,
	}
}
