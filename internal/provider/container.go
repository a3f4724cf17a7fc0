package provider

import (
	"context"
	"strings"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/authz"
	"github.com/astrocyte/PSOLOMON/internal/cache"
	"github.com/astrocyte/PSOLOMON/internal/commerce"
	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/models"
	"github.com/astrocyte/PSOLOMON/internal/queue"
	"github.com/astrocyte/PSOLOMON/internal/repository"
	"github.com/astrocyte/PSOLOMON/internal/service"
)

// Container 进程级依赖容器，API 与 worker 共用同一份装配结果
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	AffiliateRepo     repository.AffiliateRepository
	PaymentRecordRepo repository.PaymentRecordRepository
	SettingRepo       repository.SettingRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	EmailService        *service.EmailService
	CaptchaService      *service.CaptchaService
	SettingService      *service.SettingService
	NotificationService *service.NotificationService
	AffiliateService    *service.AffiliateService
	CommissionService   *service.CommissionService
}

// NewContainer 按依赖顺序装配仓储与服务
func NewContainer(cfg *config.Config) *Container {
	initCache(&cfg.Redis)

	db := models.DB
	c := &Container{
		Config:            cfg,
		QueueClient:       newQueueClient(&cfg.Queue),
		AdminRepo:         repository.NewAdminRepository(db),
		AffiliateRepo:     repository.NewAffiliateRepository(db),
		PaymentRecordRepo: repository.NewPaymentRecordRepository(db),
		SettingRepo:       repository.NewSettingRepository(db),
	}
	c.initServices()
	return c
}

// initCache 启动时探测缓存连通性，失败仅告警并降级运行
func initCache(cfg *config.RedisConfig) {
	if err := cache.InitRedis(cfg); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
		return
	}
	if !cache.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		logger.Warnw("provider_redis_ping_failed", "error", err)
	}
}

// newQueueClient 队列未启用或初始化失败时返回 nil，通知走同步降级路径
func newQueueClient(cfg *config.QueueConfig) *queue.Client {
	if !cfg.Enabled {
		return nil
	}
	client, err := queue.NewClient(cfg)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		return nil
	}
	return client
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err == nil {
		err = authzService.BootstrapBuiltinRoles()
	}
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.Config.Email = c.resolveSMTPConfig()
	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)

	// 商城网关不可用时服务仍可启动，相关操作返回外部服务错误
	gateway := c.initCommerceGateway()

	c.NotificationService = service.NewNotificationService(c.SettingService, c.EmailService, c.QueueClient, c.Config.Affiliate)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, gateway, c.SettingService, c.NotificationService, c.Config.Affiliate)
	c.CommissionService = service.NewCommissionService(c.AffiliateRepo, c.PaymentRecordRepo, gateway, c.NotificationService)
}

// resolveSMTPConfig 库表中的 SMTP 设置优先于启动配置，读取失败时退回启动配置
func (c *Container) resolveSMTPConfig() config.EmailConfig {
	setting, err := c.SettingService.GetSMTPSetting(c.Config.Email)
	if err != nil {
		logger.Warnw("provider_load_smtp_setting_failed", "error", err)
		return c.Config.Email
	}
	return service.SMTPSettingToConfig(setting)
}

func (c *Container) initCommerceGateway() commerce.Gateway {
	if strings.TrimSpace(c.Config.Commerce.BaseURL) == "" {
		logger.Warnw("provider_commerce_gateway_not_configured")
		return nil
	}
	client, err := commerce.NewWooClient(commerce.Config{
		BaseURL:        c.Config.Commerce.BaseURL,
		ConsumerKey:    c.Config.Commerce.ConsumerKey,
		ConsumerSecret: c.Config.Commerce.ConsumerSecret,
		Timeout:        time.Duration(c.Config.Commerce.TimeoutSeconds) * time.Second,
		PageSize:       c.Config.Commerce.PageSize,
	})
	if err != nil {
		logger.Errorw("provider_init_commerce_gateway_failed", "error", err)
		return nil
	}
	return client
}
