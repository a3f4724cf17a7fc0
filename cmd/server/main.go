package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/astrocyte/PSOLOMON/internal/app"
	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	envDefaultAdminUser = "PSO_DEFAULT_ADMIN_USERNAME"
	envDefaultAdminPass = "PSO_DEFAULT_ADMIN_PASSWORD"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiBlue  = "\033[34m"
	ansiCyan  = "\033[36m"
)

// weakSecretMarkers 常见占位密钥片段，命中即视为弱密钥
var weakSecretMarkers = []string{
	"change-me",
	"change-in-production",
	"your-secret-key",
}

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	printStartupBanner()

	// 加载配置并初始化日志
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	guardJWTSecret(cfg, stdLog)

	if err := prepareDatabase(cfg); err != nil {
		stdLog.Fatalf("数据库准备失败: %v", err)
	}
	seedDefaultAdmin(cfg, stdLog)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

// guardJWTSecret release 模式下弱密钥直接拒绝启动，其余模式仅警告
func guardJWTSecret(cfg *config.Config, stdLog *log.Logger) {
	if !isWeakSecret(cfg.JWT.SecretKey) {
		return
	}
	if cfg.Server.Mode == "release" {
		stdLog.Fatalf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
	}
	stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
}

// prepareDatabase 建立数据库连接并执行自动迁移
func prepareDatabase(cfg *config.Config) error {
	err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	})
	if err != nil {
		return fmt.Errorf("连接数据库: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("自动迁移: %w", err)
	}
	return nil
}

// seedDefaultAdmin 按环境变量初始化默认管理员，release 下未提供密码则跳过
func seedDefaultAdmin(cfg *config.Config, stdLog *log.Logger) {
	username := os.Getenv(envDefaultAdminUser)
	password := os.Getenv(envDefaultAdminPass)
	if cfg.Server.Mode == "release" && password == "" {
		stdLog.Printf("警告: 未设置 %s，已跳过默认管理员初始化", envDefaultAdminPass)
		return
	}
	if err := models.InitDefaultAdmin(username, password); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiCyan + "██████╗ ███████╗ ██████╗ ██╗      ██████╗ ███╗   ███╗ ██████╗ ███╗   ██╗" + ansiReset)
	fmt.Println(ansiCyan + "██╔══██╗██╔════╝██╔═══██╗██║     ██╔═══██╗████╗ ████║██╔═══██╗████╗  ██║" + ansiReset)
	fmt.Println(ansiCyan + "██████╔╝███████╗██║   ██║██║     ██║   ██║██╔████╔██║██║   ██║██╔██╗ ██║" + ansiReset)
	fmt.Println(ansiCyan + "██╔═══╝ ╚════██║██║   ██║██║     ██║   ██║██║╚██╔╝██║██║   ██║██║╚██╗██║" + ansiReset)
	fmt.Println(ansiCyan + "██║     ███████║╚██████╔╝███████╗╚██████╔╝██║ ╚═╝ ██║╚██████╔╝██║ ╚████║" + ansiReset)
	fmt.Println(ansiCyan + "╚═╝     ╚══════╝ ╚═════╝ ╚══════╝ ╚═════╝ ╚═╝     ╚═╝ ╚═════╝ ╚═╝  ╚═══╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "PSOLOMON Affiliate & Commission API" + ansiReset)
	fmt.Println(ansiBlue + "• Source: https://github.com/astrocyte/PSOLOMON" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	for _, marker := range weakSecretMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}
