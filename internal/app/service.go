package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service 可托管的长驻服务
// Start 阻塞运行直到出错或 ctx 取消，Stop 负责优雅退出
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Runner 按注册顺序启动一组服务，任一退出即整体停机
type Runner struct {
	services []Service
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = opts.withDefaults()

	ctx, cancel := signalContext(opts.Signals)
	defer cancel()
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// signalContext 构造随系统信号取消的根上下文，未指定信号时只随手动 cancel 结束
func signalContext(signals []os.Signal) (context.Context, context.CancelFunc) {
	if len(signals) == 0 {
		return context.WithCancel(context.Background())
	}
	return signal.NotifyContext(context.Background(), signals...)
}

// Run 启动全部服务并阻塞，直到收到信号或任一服务退出
// 返回首个导致停机的错误，信号触发的正常退出返回 nil
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, logger *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	for _, svc := range r.services {
		if svc == nil {
			return errors.New("service is nil")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	firstErr := make(chan error, 1)
	report := func(err error) {
		select {
		case firstErr <- err:
		default:
		}
	}

	var wg sync.WaitGroup
	for _, svc := range r.services {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			// 一个服务退出后联动停掉其余服务
			defer cancel()
			if logger != nil {
				logger.Infow("service_start", "service", svc.Name())
			}
			err := svc.Start(runCtx)
			if err != nil {
				err = fmt.Errorf("%s: %w", svc.Name(), err)
			}
			report(err)
			if logger != nil {
				logger.Infow("service_exit", "service", svc.Name())
			}
		}()
	}

	var runErr error
	select {
	case <-runCtx.Done():
		// 若停机由服务自身退出触发，报告服务错误而不是 context.Canceled
		runErr = firstOf(firstErr, runCtx.Err())
	case err := <-firstErr:
		runErr = err
	}

	cancel()
	r.stopAll(stopTimeout, logger)
	wg.Wait()

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// firstOf 优先取服务上报的错误，通道为空时退回 fallback
func firstOf(errCh <-chan error, fallback error) error {
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	default:
	}
	return fallback
}

// stopAll 按注册顺序停止服务：先关 HTTP 入口，再停后台消费
func (r *Runner) stopAll(stopTimeout time.Duration, logger *zap.SugaredLogger) {
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	for _, svc := range r.services {
		if err := svc.Stop(stopCtx); err != nil && logger != nil {
			logger.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}
}
