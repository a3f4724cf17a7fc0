package admin

import "github.com/astrocyte/PSOLOMON/internal/provider"

// Handler 运营后台接口的统一入口
// 内嵌容器，处理器直接取用其中的服务与仓储。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
