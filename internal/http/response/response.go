package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 统一响应约定：HTTP 层一律返回 200，业务结果由 status_code 表达
// 前端只需解析一种信封结构

// Response 统一响应信封
// status_code 为业务码，data 为载荷
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse 带分页信息的响应信封
type PageResponse struct {
	Response
	Pagination Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// BuildPagination 由页码与总数构造分页信息
func BuildPagination(page, pageSize int, total int64) Pagination {
	if pageSize <= 0 {
		pageSize = 20
	}
	return Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}

func write(c *gin.Context, statusCode int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       data,
	})
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	write(c, CodeOK, "success", data)
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	write(c, CodeOK, msg, data)
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		Response: Response{
			StatusCode: CodeOK,
			Msg:        "success",
			Data:       data,
		},
		Pagination: pagination,
	})
}

// Error 错误响应，data 中附带 request_id 便于排障
func Error(c *gin.Context, statusCode int, msg string) {
	write(c, statusCode, msg, attachRequestID(c, nil))
}

// Unauthorized 未认证响应
func Unauthorized(c *gin.Context, msg string) {
	Error(c, CodeUnauthorized, msg)
}

// Forbidden 无权限响应
func Forbidden(c *gin.Context, msg string) {
	Error(c, CodeForbidden, msg)
}

func requestIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, _ := c.Get("request_id")
	requestID, _ := value.(string)
	return requestID
}

func withRequestID(m map[string]interface{}, requestID string) map[string]interface{} {
	if _, taken := m["request_id"]; !taken {
		m["request_id"] = requestID
	}
	return m
}

// attachRequestID 把 request_id 合并进错误响应数据
// 已有同名键时不覆盖
func attachRequestID(c *gin.Context, data interface{}) interface{} {
	requestID := requestIDFromContext(c)
	if requestID == "" {
		return data
	}

	switch v := data.(type) {
	case nil:
		return gin.H{"request_id": requestID}
	case gin.H:
		return withRequestID(v, requestID)
	case map[string]interface{}:
		return withRequestID(v, requestID)
	default:
		return gin.H{"request_id": requestID, "data": data}
	}
}
