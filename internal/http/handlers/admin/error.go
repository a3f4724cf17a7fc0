package admin

import (
	"errors"

	handlershared "github.com/astrocyte/PSOLOMON/internal/http/handlers/shared"
	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

// bindJSON 解析请求体，失败时写出统一的 400 响应
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request payload", err)
		return false
	}
	return true
}

// respondAffiliateError 按业务哨兵错误映射统一响应
// 校验与流转类错误把服务层消息原样透出，内部错误只回通用提示
func respondAffiliateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(c, response.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrDuplicateEmail):
		respondError(c, response.CodeConflict, "email already registered", nil)
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "affiliate not found", nil)
	case errors.Is(err, service.ErrInvalidTransition):
		respondError(c, response.CodeConflict, err.Error(), nil)
	case errors.Is(err, service.ErrExternalService):
		respondError(c, response.CodeBadGateway, "commerce gateway request failed", err)
	default:
		respondError(c, response.CodeInternal, "operation failed", err)
	}
}
