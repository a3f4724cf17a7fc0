package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 滚动策略缺省值：单文件 100MB，保留 7 份、30 天
const (
	defaultDirName    = "logs"
	defaultFilename   = "app.log"
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 7
	defaultMaxAgeDays = 30
)

// Options 日志输出配置
type Options struct {
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// L 全局结构化日志实例
var L *zap.Logger

var (
	fallbackInit sync.Once
	fallback     *zap.Logger
)

// Init 初始化全局日志并替换 zap 全局实例
func Init(mode string, options Options) *zap.Logger {
	if L = New(mode, options); L == nil {
		L = fallbackLogger()
	}
	zap.ReplaceGlobals(L)
	return L
}

// New 创建日志实例
// debug 模式输出到控制台，release 模式输出 JSON 到滚动文件并对重复日志采样
func New(mode string, options Options) *zap.Logger {
	if isDebugMode(mode) {
		return assemble(consoleCore(zap.DebugLevel), false)
	}

	syncer, err := fileSyncer(options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed, fallback to stdout: %v\n", err)
		syncer = zapcore.AddSync(os.Stdout)
	}
	return assemble(jsonCore(syncer, zap.InfoLevel), true)
}

// Sync 刷新全局日志缓冲，进程退出前调用
func Sync() {
	if L != nil {
		_ = L.Sync()
	}
}

// StdLogger 返回兼容标准库 log 的 logger
func StdLogger() *log.Logger { return zap.NewStdLog(Z()) }

// Z 返回可用的结构化日志实例，Init 之前走控制台兜底
func Z() *zap.Logger {
	if L == nil {
		return fallbackLogger()
	}
	return L
}

// S 返回可用的 SugaredLogger
func S() *zap.SugaredLogger { return Z().Sugar() }

// SW 返回带上下文字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	sugar := S()
	if len(kv) > 0 {
		sugar = sugar.With(kv...)
	}
	return sugar
}

// 包级结构化日志入口
func Debugw(message string, kv ...interface{}) { S().Debugw(message, kv...) }
func Infow(message string, kv ...interface{})  { S().Infow(message, kv...) }
func Warnw(message string, kv ...interface{})  { S().Warnw(message, kv...) }
func Errorw(message string, kv ...interface{}) { S().Errorw(message, kv...) }

func isDebugMode(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), "debug")
}

// assemble 组装 zap.Logger
// sampled 开启时每秒同类日志超过 100 条后按 1/10 采样
func assemble(core zapcore.Core, sampled bool) *zap.Logger {
	if sampled {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)
	}
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
}

func consoleCore(level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		zapcore.AddSync(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)
}

func jsonCore(syncer zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		syncer,
		zap.NewAtomicLevelAt(level),
	)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func fallbackLogger() *zap.Logger {
	fallbackInit.Do(func() {
		fallback = assemble(consoleCore(zap.InfoLevel), false)
	})
	return fallback
}

// fileSyncer 构造滚动文件输出，按大小切割并保留历史
func fileSyncer(options Options) (zapcore.WriteSyncer, error) {
	logFilePath, err := resolveLogFilePath(options)
	if err != nil {
		return nil, err
	}

	writer := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    positiveOr(options.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: positiveOr(options.MaxBackups, defaultMaxBackups),
		MaxAge:     positiveOr(options.MaxAgeDays, defaultMaxAgeDays),
		Compress:   options.Compress,
	}
	return zapcore.AddSync(writer), nil
}

// resolveLogFilePath 计算日志文件路径并确保目录可写
// 以追加方式试开一次文件，把权限问题暴露在启动期而不是首条日志
func resolveLogFilePath(options Options) (string, error) {
	filename := strings.TrimSpace(options.Filename)
	if filename == "" {
		filename = defaultFilename
	}

	dir := strings.TrimSpace(options.Dir)
	if dir == "" {
		workDir, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("locate workdir failed: %w", err)
		}
		dir = filepath.Join(workDir, defaultDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir failed: %w", err)
	}

	logFilePath := filepath.Join(dir, filename)
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err == nil {
		err = file.Close()
	}
	if err != nil {
		return "", fmt.Errorf("log file not writable: %w", err)
	}
	return logFilePath, nil
}

func positiveOr(value int, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
