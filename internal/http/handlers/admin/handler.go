package admin

import "github.com/vaultpass/internal/provider"

// Handler 运营侧接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建运营处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
