package public

import "github.com/astrocyte/PSOLOMON/internal/provider"

// Handler 公开接口处理器入口
// 无需登录即可访问：申请入驻与配套的验证码接口。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
