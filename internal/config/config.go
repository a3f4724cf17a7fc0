package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Queue     QueueConfig     `mapstructure:"queue"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Security  SecurityConfig  `mapstructure:"security"`
	Email     EmailConfig     `mapstructure:"email"`
	Captcha   CaptchaConfig   `mapstructure:"captcha"`
	Commerce  CommerceConfig  `mapstructure:"commerce"`
	Affiliate AffiliateConfig `mapstructure:"affiliate"`
}

// ServerConfig HTTP 服务监听配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// JWTConfig 管理端 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Addr 连接地址，主机端口缺省时落到本机默认端口
func (c RedisConfig) Addr() string {
	return joinRedisAddr(c.Host, c.Port)
}

// QueueConfig 异步队列配置
// 队列与缓存允许使用不同的 Redis 实例
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// Addr 队列 Redis 连接地址
func (c QueueConfig) Addr() string {
	return joinRedisAddr(c.Host, c.Port)
}

func joinRedisAddr(host string, port int) string {
	h := strings.TrimSpace(host)
	if h == "" {
		h = "127.0.0.1"
	}
	if port <= 0 {
		port = 6379
	}
	return net.JoinHostPort(h, strconv.Itoa(port))
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
	ApplyRateLimit ApplyRateLimitConfig `mapstructure:"apply_rate_limit"`
	PasswordPolicy PasswordPolicyConfig `mapstructure:"password_policy"`
}

// LoginRateLimitConfig 登录限流配置
type LoginRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// ApplyRateLimitConfig 推广申请限流配置
type ApplyRateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
}

// PasswordPolicyConfig 密码策略配置
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// EmailConfig 邮件服务配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	UseTLS   bool   `mapstructure:"use_tls"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

// CaptchaConfig 验证码配置
type CaptchaConfig struct {
	Enabled bool               `mapstructure:"enabled"`
	Image   CaptchaImageConfig `mapstructure:"image"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// CommerceConfig 商城网关配置
// 对接 WooCommerce REST v3 接口
type CommerceConfig struct {
	BaseURL        string `mapstructure:"base_url"`        // 商城站点地址
	ConsumerKey    string `mapstructure:"consumer_key"`    // REST API consumer key
	ConsumerSecret string `mapstructure:"consumer_secret"` // REST API consumer secret
	TimeoutSeconds int    `mapstructure:"timeout_seconds"` // 单次请求超时
	PageSize       int    `mapstructure:"page_size"`       // 订单分页大小
}

// AffiliateConfig 推广计划默认配置
// 可被后台设置覆盖，这里是启动默认值
type AffiliateConfig struct {
	SiteBaseURL           string  `mapstructure:"site_base_url"`           // 推广链接基础地址
	DefaultCommissionRate float64 `mapstructure:"default_commission_rate"` // 默认佣金比例（百分比）
	CouponDiscountType    string  `mapstructure:"coupon_discount_type"`    // 优惠券折扣类型
	CouponDiscountAmount  float64 `mapstructure:"coupon_discount_amount"`  // 优惠券折扣数值
	AutoGenerateCoupon    bool    `mapstructure:"auto_generate_coupon"`    // 审核通过后自动生成优惠券
}

// configDefaults 全量默认值
// 键与 config.yml 的层级一致，环境变量覆盖时把 . 换成 _
func configDefaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host": "0.0.0.0",
		"server.port": "8080",
		"server.mode": "debug",

		"log.dir":          "",
		"log.filename":     "app.log",
		"log.max_size_mb":  100,
		"log.max_backups":  7,
		"log.max_age_days": 30,
		"log.compress":     true,

		"database.driver":                          "sqlite",
		"database.dsn":                             "./db/affiliate.db",
		"database.pool.max_open_conns":             1,
		"database.pool.max_idle_conns":             1,
		"database.pool.conn_max_lifetime_seconds":  0,
		"database.pool.conn_max_idle_time_seconds": 0,

		"jwt.secret":       "change-me-in-production",
		"jwt.expire_hours": 24,

		"redis.enabled":  true,
		"redis.host":     "127.0.0.1",
		"redis.port":     6379,
		"redis.password": "",
		"redis.db":       0,
		"redis.prefix":   "aff",

		"queue.enabled":     true,
		"queue.host":        "127.0.0.1",
		"queue.port":        6379,
		"queue.password":    "",
		"queue.db":          1,
		"queue.concurrency": 10,
		"queue.queues": map[string]int{
			"default":  10,
			"critical": 5,
		},

		"cors.allowed_origins": []string{"*"},
		"cors.allowed_methods": []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		"cors.allowed_headers": []string{
			"Content-Type",
			"Content-Length",
			"Accept-Encoding",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			"X-CSRF-Token",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           600,

		"security.login_rate_limit.window_seconds": 300,
		"security.login_rate_limit.max_attempts":   5,
		"security.login_rate_limit.block_seconds":  900,
		"security.apply_rate_limit.window_seconds": 3600,
		"security.apply_rate_limit.max_attempts":   5,
		"security.password_policy.min_length":      8,
		"security.password_policy.require_upper":   true,
		"security.password_policy.require_lower":   true,
		"security.password_policy.require_number":  true,
		"security.password_policy.require_special": false,

		"email.enabled":   false,
		"email.host":      "",
		"email.port":      587,
		"email.username":  "",
		"email.password":  "",
		"email.from":      "",
		"email.from_name": "",
		"email.use_tls":   true,
		"email.use_ssl":   false,

		"captcha.enabled":              true,
		"captcha.image.length":         5,
		"captcha.image.width":          240,
		"captcha.image.height":         80,
		"captcha.image.noise_count":    2,
		"captcha.image.show_line":      2,
		"captcha.image.expire_seconds": 300,
		"captcha.image.max_store":      10240,

		"commerce.base_url":        "",
		"commerce.consumer_key":    "",
		"commerce.consumer_secret": "",
		"commerce.timeout_seconds": 15,
		"commerce.page_size":       100,

		"affiliate.site_base_url":           "",
		"affiliate.default_commission_rate": 10,
		"affiliate.coupon_discount_type":    "percent",
		"affiliate.coupon_discount_amount":  10,
		"affiliate.auto_generate_coupon":    true,
	}
}

// Load 加载配置
// 查找顺序：工作目录 config.yml > 上级目录 > ./etc，环境变量随时覆盖
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range []string{".", "./", "../", "./etc"} {
		viper.AddConfigPath(path)
	}
	for key, value := range configDefaults() {
		viper.SetDefault(key, value)
	}
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed", "error", err, "fallback", "env_or_defaults")
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("unmarshal config failed: %w", err))
	}
	return &cfg
}
