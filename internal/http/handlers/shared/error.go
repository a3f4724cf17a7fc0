package shared

import (
	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if id := requestID(c); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

func requestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, _ := c.Get("request_id")
	id, _ := value.(string)
	return id
}

// RespondError 写出统一错误响应，携带原始错误时先记一条日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
