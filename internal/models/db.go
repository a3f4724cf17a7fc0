package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	applog "github.com/astrocyte/PSOLOMON/internal/logger"

	"github.com/glebarez/sqlite" // 纯 Go 实现的 SQLite 驱动，免 CGO
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// slowQueryThreshold 超过该耗时的 SQL 记入慢查询日志
const slowQueryThreshold = 200 * time.Millisecond

// DBPoolConfig 数据库连接池配置
type DBPoolConfig struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
	ConnMaxIdleTimeSeconds int
}

// InitDB 初始化数据库连接
// 支持 sqlite 与 postgres 两种驱动，连接池参数缺省时沿用驱动默认值
func InitDB(driver, dsn string, pool DBPoolConfig) error {
	dialector, err := resolveDialector(driver, dsn)
	if err != nil {
		return err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	pool.apply(sqlDB)

	DB = db
	return nil
}

// resolveDialector 根据驱动名选择 GORM 方言
func resolveDialector(driver, dsn string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres", "postgresql":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// newGormLogger 把 GORM 日志接到 zap
// 只输出慢查询与错误，记录未找到不算错误
func newGormLogger() gormlogger.Interface {
	return gormlogger.New(applog.StdLogger(), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func (p DBPoolConfig) apply(sqlDB *sql.DB) {
	if sqlDB == nil {
		return
	}
	if p.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns >= 0 {
		sqlDB.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetimeSeconds > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(p.ConnMaxLifetimeSeconds) * time.Second)
	}
	if p.ConnMaxIdleTimeSeconds > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(p.ConnMaxIdleTimeSeconds) * time.Second)
	}
}

// AutoMigrate 自动迁移全部数据表
func AutoMigrate() error {
	return DB.AutoMigrate(
		&Admin{},
		&Affiliate{},
		&PaymentRecord{},
		&Setting{},
	)
}
