package shared

import (
	"errors"

	"github.com/astrocyte/PSOLOMON/internal/http/response"

	"github.com/gin-gonic/gin"
)

var (
	errNegativeContextID   = errors.New("negative id in context")
	errUnexpectedContextID = errors.New("unexpected id type in context")
)

// GetContextUint 从上下文读取 uint 身份值并统一处理错误响应。
func GetContextUint(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return 0, false
	}

	id, err := coerceContextUint(value)
	switch err {
	case nil:
		return id, true
	case errNegativeContextID:
		RespondError(c, response.CodeBadRequest, "invalid identity in context", nil)
	default:
		RespondError(c, response.CodeInternal, "unexpected identity type in context", nil)
	}
	return 0, false
}

// coerceContextUint 兼容中间件写入 int 或 JSON 解码成 float64 的身份值
func coerceContextUint(value interface{}) (uint, error) {
	switch v := value.(type) {
	case uint:
		return v, nil
	case int:
		if v < 0 {
			return 0, errNegativeContextID
		}
		return uint(v), nil
	case float64:
		if v < 0 {
			return 0, errNegativeContextID
		}
		return uint(v), nil
	}
	return 0, errUnexpectedContextID
}
