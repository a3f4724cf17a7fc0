package app

import (
	"os"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/logger"

	"go.uber.org/zap"
)

// 进程运行模式
// all 同时承载 API 与队列消费，api/worker 用于分角色独立部署
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// defaultStopTimeout 停机超时兜底值
const defaultStopTimeout = 10 * time.Second

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// withDefaults 补齐未设置的字段
func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.S()
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultStopTimeout
	}
	if o.Mode == "" {
		o.Mode = ModeAll
	}
	return o
}
