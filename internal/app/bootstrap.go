package app

import (
	"errors"
	"fmt"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/provider"
	"github.com/astrocyte/PSOLOMON/internal/router"
	"github.com/astrocyte/PSOLOMON/internal/worker"
)

// BuildRunner 按运行模式组装服务
// api 模式只挂 HTTP，worker 模式只挂队列消费，all 两者都挂
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	wantAPI := mode == ModeAll || mode == ModeAPI
	wantWorker := mode == ModeAll || mode == ModeWorker
	if !wantAPI && !wantWorker {
		return nil, fmt.Errorf("unknown run mode: %s", mode)
	}

	container := provider.NewContainer(cfg)
	var services []Service

	if wantAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server.Addr(), engine))
	}

	if wantWorker {
		workerService, err := buildWorkerService(cfg, container, mode)
		if err != nil {
			return nil, err
		}
		if workerService != nil {
			services = append(services, workerService)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return NewRunner(services...), nil
}

// buildWorkerService 组装队列消费服务
// 队列未开启时 all 模式退化为纯 API，worker 模式直接报错
func buildWorkerService(cfg *config.Config, container *provider.Container, mode string) (Service, error) {
	if !cfg.Queue.Enabled {
		if mode == ModeWorker {
			return nil, errors.New("worker mode requires queue enabled")
		}
		return nil, nil
	}
	consumer := worker.NewConsumer(container)
	return worker.NewService(&cfg.Queue, consumer)
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = opts.withDefaults()
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
