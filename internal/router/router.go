package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/authz"
	"github.com/astrocyte/PSOLOMON/internal/cache"
	"github.com/astrocyte/PSOLOMON/internal/config"
	adminhandlers "github.com/astrocyte/PSOLOMON/internal/http/handlers/admin"
	publichandlers "github.com/astrocyte/PSOLOMON/internal/http/handlers/public"
	"github.com/astrocyte/PSOLOMON/internal/http/response"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/provider"

	"github.com/gin-gonic/gin"
)

// securityRules 按配置组装登录与入驻申请的限流规则
func securityRules(cfg *config.Config) (login, apply RateLimitRule) {
	prefix := strings.TrimSpace(cfg.Redis.Prefix)
	if prefix == "" {
		prefix = "pso"
	}
	login = RateLimitRule{
		Prefix:        prefix + ":rate:admin_login",
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
		Message:       "too many login attempts",
	}
	apply = RateLimitRule{
		Prefix:        prefix + ":rate:affiliate_apply",
		WindowSeconds: cfg.Security.ApplyRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.ApplyRateLimit.MaxAttempts,
		Message:       "too many applications",
	}
	return login, apply
}

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(log), CORSMiddleware(cfg.CORS))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	loginRule, applyRule := securityRules(cfg)
	redisClient := cache.Client()

	apiV1 := r.Group("/api/v1")

	// 公开接口：验证码 + 推广入驻申请
	apiV1.GET("/captcha", publicHandler.GetImageCaptcha)
	apiV1.POST("/affiliate/apply",
		RateLimitMiddleware(redisClient, applyRule, KeyByIPAndJSONField("email")),
		publicHandler.ApplyAffiliate)

	// 管理员接口：登录不鉴权，其余全部过 JWT + RBAC
	adminGroup := apiV1.Group("/admin")
	adminGroup.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIP), adminHandler.AdminLogin)

	authorized := adminGroup.Use(
		JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo),
		AdminRBACMiddleware(c.AuthzService),
	)
	registerAdminRoutes(authorized, adminHandler, r)

	return r
}

// registerAdminRoutes 挂载全部需要鉴权的管理端路由
func registerAdminRoutes(routes gin.IRoutes, h *adminhandlers.Handler, engine *gin.Engine) {
	// 账号
	routes.GET("/me", h.GetAdminMe)
	routes.PUT("/password", h.UpdateAdminPassword)

	// 推广伙伴生命周期
	routes.GET("/affiliates", h.ListAffiliates)
	routes.POST("/affiliates", h.CreateAffiliate)
	routes.GET("/affiliates/count", h.CountAffiliates)
	routes.GET("/affiliates/:id", h.GetAffiliate)
	routes.DELETE("/affiliates/:id", h.DeleteAffiliate)
	routes.POST("/affiliates/:id/approve", h.ApproveAffiliate)
	routes.POST("/affiliates/:id/reject", h.RejectAffiliate)
	routes.POST("/affiliates/:id/deactivate", h.DeactivateAffiliate)
	routes.POST("/affiliates/:id/reactivate", h.ReactivateAffiliate)
	routes.PUT("/affiliates/:id/commission-rate", h.UpdateAffiliateCommissionRate)
	routes.PUT("/affiliates/:id/coupon-discount", h.UpdateAffiliateCouponDiscount)
	routes.PUT("/affiliates/:id/profile", h.UpdateAffiliateProfile)

	// 佣金对账与打款
	routes.GET("/affiliates/:id/stats", h.GetAffiliateStats)
	routes.GET("/coupons/:code/stats", h.GetCouponStats)
	routes.GET("/affiliates/:id/orders", h.GetAffiliateOrders)
	routes.POST("/affiliates/:id/payments", h.RecordAffiliatePayment)
	routes.GET("/affiliates/:id/payments", h.ListAffiliatePayments)

	// 设置管理
	routes.GET("/affiliate-settings", h.GetAffiliateSettings)
	routes.PUT("/affiliate-settings", h.UpdateAffiliateSettings)
	routes.GET("/smtp-settings", h.GetSMTPSettings)
	routes.PUT("/smtp-settings", h.UpdateSMTPSettings)
	routes.POST("/smtp-settings/test", h.TestSMTPSettings)
	routes.POST("/notifications/test", h.SendTestNotification)

	// 权限管理
	routes.GET("/authz/roles", h.ListAuthzRoles)
	routes.POST("/authz/roles", h.CreateAuthzRole)
	routes.DELETE("/authz/roles/:role", h.DeleteAuthzRole)
	routes.GET("/authz/roles/:role/policies", h.GetAuthzRolePolicies)
	routes.POST("/authz/policies", h.GrantAuthzPolicy)
	routes.DELETE("/authz/policies", h.RevokeAuthzPolicy)
	routes.GET("/authz/admins", h.ListAuthzAdmins)
	routes.POST("/authz/admins", h.CreateAuthzAdmin)
	routes.PUT("/authz/admins/:id", h.UpdateAuthzAdmin)
	routes.GET("/authz/admins/:id/roles", h.GetAuthzAdminRoles)
	routes.PUT("/authz/admins/:id/roles", h.SetAuthzAdminRoles)
	routes.GET("/authz/me", h.GetAuthzMe)
	routes.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
		response.Success(ctx, buildAdminPermissionCatalog(engine))
	})
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 基于已注册路由生成可授权的权限清单
// 登录接口与预检类方法不进清单，授权它们没有意义
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	items := make([]adminPermissionCatalogItem, 0, 32)
	seen := make(map[string]struct{})
	for _, route := range engine.Routes() {
		entry, ok := catalogEntryForRoute(route.Method, route.Path)
		if !ok {
			continue
		}
		if _, dup := seen[entry.Permission]; dup {
			continue
		}
		seen[entry.Permission] = struct{}{}
		items = append(items, entry)
	}

	sort.Slice(items, func(i, j int) bool {
		left, right := items[i], items[j]
		if left.Module != right.Module {
			return left.Module < right.Module
		}
		if left.Object != right.Object {
			return left.Object < right.Object
		}
		return left.Method < right.Method
	})
	return items
}

// catalogEntryForRoute 把一条 gin 路由折算成可授权项
func catalogEntryForRoute(method, path string) (adminPermissionCatalogItem, bool) {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case "", http.MethodOptions, http.MethodHead:
		return adminPermissionCatalogItem{}, false
	}
	if !strings.HasPrefix(path, "/api/v1/admin/") || path == "/api/v1/admin/login" {
		return adminPermissionCatalogItem{}, false
	}

	object := authz.NormalizeObject(path)
	return adminPermissionCatalogItem{
		Module:     deriveAdminPermissionModule(object),
		Method:     method,
		Object:     object,
		Permission: method + ":" + object,
	}, true
}

func deriveAdminPermissionModule(object string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if trimmed == "" {
		return "system"
	}
	head, rest, found := strings.Cut(trimmed, "/")
	if !found || head != "admin" {
		return head
	}
	module, _, _ := strings.Cut(rest, "/")
	return module
}
