package public

import (
	"github.com/vaultpass/internal/http/handlers/shared"
	"github.com/vaultpass/internal/http/response"
	"github.com/vaultpass/internal/service"

	"github.com/gin-gonic/gin"
)

// pinLoginRequest PIN 登录请求
type pinLoginRequest struct {
	LocationID uint   `json:"location_id" binding:"required"`
	Pin        string `json:"pin" binding:"required"`
	Mode       string `json:"mode"` // staff / admin，缺省 staff
}

var pinLoginErrorRules = []mappedHandlerError{
	{target: service.ErrLocationNotFound, code: response.CodeNotFound, msg: "location not found"},
	{target: service.ErrLocationInactive, code: response.CodeForbidden, msg: "location inactive"},
	{target: service.ErrInvalidPin, code: response.CodeUnauthorized, msg: "invalid pin"},
}

// PinLogin 门店终端用 PIN 换取会话令牌
func (h *Handler) PinLogin(c *gin.Context) {
	var req pinLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	session, err := h.PinAuthService.Login(req.LocationID, req.Pin, req.Mode)
	if err != nil {
		respondWithMappedError(c, err, pinLoginErrorRules, response.CodeInternal, "login failed")
		return
	}

	response.Success(c, gin.H{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"role":       session.Role,
		"location":   toLocationView(*session.Location),
	})
}
