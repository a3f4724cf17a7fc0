package router

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/astrocyte/PSOLOMON/internal/authz"
	"github.com/astrocyte/PSOLOMON/internal/cache"
	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/repository"
	"github.com/astrocyte/PSOLOMON/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"
const requestIDHeader = "X-Request-ID"
const adminIsSuperContextKey = "admin_is_super"

var defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}

var defaultCORSHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Accept-Encoding",
	"Authorization",
	"Cache-Control",
	"X-Requested-With",
	"X-CSRF-Token",
}

// corsPolicy 启动时根据配置预计算好的跨域策略
type corsPolicy struct {
	wildcard         bool
	origins          map[string]string
	methodsHeader    string
	headersHeader    string
	maxAgeHeader     string
	allowCredentials bool
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}

	policy := corsPolicy{
		origins:          make(map[string]string, len(allowedOrigins)),
		methodsHeader:    strings.Join(methods, ", "),
		headersHeader:    strings.Join(headers, ", "),
		allowCredentials: cfg.AllowCredentials,
	}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			policy.wildcard = true
			continue
		}
		// 匹配时忽略大小写，返回配置里的原始写法
		policy.origins[strings.ToLower(origin)] = origin
	}
	if cfg.MaxAge > 0 {
		policy.maxAgeHeader = strconv.Itoa(cfg.MaxAge)
	}
	return policy
}

// originFor 计算响应的 Access-Control-Allow-Origin 值，空串表示不下发
func (p corsPolicy) originFor(origin string) string {
	if p.wildcard {
		// 带凭证时浏览器拒绝字面量 *，回显请求来源
		if p.allowCredentials && origin != "" {
			return origin
		}
		return "*"
	}
	if origin == "" {
		return ""
	}
	if _, ok := p.origins[strings.ToLower(origin)]; ok {
		return origin
	}
	return ""
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	policy := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		header := c.Writer.Header()
		if allowed := policy.originFor(c.GetHeader("Origin")); allowed != "" {
			header.Set("Access-Control-Allow-Origin", allowed)
			if allowed != "*" {
				header.Add("Vary", "Origin")
			}
		}
		if policy.allowCredentials {
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", policy.headersHeader)
		header.Set("Access-Control-Allow-Methods", policy.methodsHeader)
		if policy.maxAgeHeader != "" {
			header.Set("Access-Control-Max-Age", policy.maxAgeHeader)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 请求 ID 中间件
// 透传上游带来的 X-Request-ID，缺失时生成 UUID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Set(requestIDKey, requestID)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	value, _ := c.Get(requestIDKey)
	requestID, _ := value.(string)
	return requestID
}

// LoggerMiddleware 结构化请求日志中间件
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Sugar()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"bytes", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			sugar.Errorw("request", append(kv, "errors", c.Errors.String())...)
			return
		}
		sugar.Infow("request", kv...)
	}
}

// bearerToken 从 Authorization 头提取 Bearer Token
func bearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "authorization header is missing"
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "authorization header is invalid"
	}
	return parts[1], ""
}

// abortUnauthorized 写出 401 响应并终止本次请求
func abortUnauthorized(c *gin.Context, msg string) {
	response.Unauthorized(c, msg)
	c.Abort()
}

// JWTAuthMiddleware 管理端 JWT 鉴权中间件
// 优先走 Redis 鉴权快照，未命中时回源数据库并回填
func JWTAuthMiddleware(secretKey string, adminRepo repository.AdminRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secretKey == "" {
			abortUnauthorized(c, "jwt secret is not configured")
			return
		}
		if adminRepo == nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		tokenString, failMsg := bearerToken(c)
		if failMsg != "" {
			abortUnauthorized(c, failMsg)
			return
		}

		claims, err := service.ParseAdminToken(secretKey, tokenString)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		issuedAt := time.Time{}
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}

		grant := func(isSuper bool) {
			c.Set("admin_id", claims.AdminID)
			c.Set("username", claims.Username)
			c.Set(adminIsSuperContextKey, isSuper)
			c.Next()
		}

		if cached, hit, cacheErr := cache.GetAdminAuthState(c.Request.Context(), claims.AdminID); cacheErr == nil && hit && cached != nil {
			if !cached.Enabled {
				abortUnauthorized(c, "account disabled")
				return
			}
			if !cached.AcceptsToken(claims.TokenVersion, issuedAt) {
				abortUnauthorized(c, "token has been revoked")
				return
			}
			grant(cached.IsSuper)
			return
		}

		admin, err := adminRepo.GetByID(claims.AdminID)
		if err != nil || admin == nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		if !admin.CanLogin() {
			abortUnauthorized(c, "account disabled")
			return
		}
		if !admin.AcceptsToken(claims.TokenVersion, issuedAt) {
			abortUnauthorized(c, "token has been revoked")
			return
		}
		_ = cache.SetAdminAuthState(c.Request.Context(), cache.BuildAdminAuthState(admin))
		grant(admin.IsSuper)
	}
}

func isSuperAdmin(c *gin.Context) bool {
	value, ok := c.Get(adminIsSuperContextKey)
	if !ok {
		return false
	}
	isSuper, _ := value.(bool)
	return isSuper
}

// adminIDFromContext 读取鉴权中间件写入的管理员 ID
// 容忍上游写入 int/float64 的历史形态
func adminIDFromContext(c *gin.Context) (uint, bool) {
	raw, exists := c.Get("admin_id")
	if !exists {
		return 0, false
	}
	switch value := raw.(type) {
	case uint:
		return value, value > 0
	case int:
		if value > 0 {
			return uint(value), true
		}
	case float64:
		if value > 0 {
			return uint(value), true
		}
	}
	return 0, false
}

// rbacResource 取路由模板作为鉴权对象，未匹配到路由时退回原始路径
func rbacResource(c *gin.Context) string {
	if resource := strings.TrimSpace(c.FullPath()); resource != "" {
		return resource
	}
	return c.Request.URL.Path
}

// AdminRBACMiddleware 管理端 RBAC 鉴权中间件
// 超管直接放行，其余按路由模板 + 方法查询 casbin 策略
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "unauthorized")
			return
		}
		if isSuperAdmin(c) {
			c.Next()
			return
		}

		adminID, ok := adminIDFromContext(c)
		if !ok {
			abortUnauthorized(c, "unauthorized")
			return
		}

		resource := rbacResource(c)
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"resource", authz.NormalizeObject(resource),
			)
			response.Forbidden(c, "forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}
