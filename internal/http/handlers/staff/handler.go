package staff

import "github.com/vaultpass/internal/provider"

// Handler 门店侧接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建门店处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
