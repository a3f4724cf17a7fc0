package admin

import (
	"strings"

	handlershared "github.com/astrocyte/PSOLOMON/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// getAdminID 读取登录态里的管理员 ID，缺失或非法时内部已写出错误响应
func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUint(c, "admin_id")
}

// currentAdminID 供审计日志读取操作人 ID，取不到时返回 0 而不中断请求
func currentAdminID(c *gin.Context) uint {
	value, _ := c.Get("admin_id")
	if id, ok := value.(uint); ok {
		return id
	}
	signed := 0
	switch v := value.(type) {
	case int:
		signed = v
	case float64:
		signed = int(v)
	}
	if signed > 0 {
		return uint(signed)
	}
	return 0
}

// currentUsername 读取操作人用户名，缺失时返回空串
func currentUsername(c *gin.Context) string {
	return strings.TrimSpace(c.GetString("username"))
}
