package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/cache"
	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"
	"github.com/astrocyte/PSOLOMON/internal/logger"
	"github.com/astrocyte/PSOLOMON/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	monthlySummaryCheckInterval = time.Hour
	monthlySummaryDedupeTTL     = 40 * 24 * time.Hour
	// 错过 1 号时允许在月初三天内补发
	monthlySummaryGraceDays = 3
)

// Service 异步队列服务
type Service struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer

	summaryMu        sync.Mutex
	lastSummaryMonth string
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue is not enabled")
	}
	if consumer == nil {
		return nil, errors.New("queue consumer is nil")
	}

	opt, serverCfg := queue.BuildServerConfig(cfg)
	svc := &Service{
		server:   asynq.NewServer(opt, serverCfg),
		mux:      asynq.NewServeMux(),
		consumer: consumer,
	}
	consumer.Register(svc.mux)
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string { return "worker" }

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.CommissionService != nil {
		go s.runMonthlySummaryLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

func (s *Service) runMonthlySummaryLoop(ctx context.Context) {
	ticker := time.NewTicker(monthlySummaryCheckInterval)
	defer ticker.Stop()
	for {
		s.scheduleMonthlySummaryIfDue(ctx, time.Now())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scheduleMonthlySummaryIfDue 月初为上个自然月调度汇总任务
// 进程内记录与 Redis SetNX 双层去重，多实例部署下只发一次
func (s *Service) scheduleMonthlySummaryIfDue(ctx context.Context, now time.Time) {
	if now.Day() > monthlySummaryGraceDays {
		return
	}
	month := previousMonthLabel(now)

	s.summaryMu.Lock()
	alreadyDone := s.lastSummaryMonth == month
	s.summaryMu.Unlock()
	if alreadyDone {
		return
	}

	key := constants.CacheKeyMonthlySummaryPrefix + month
	ok, err := cache.SetNX(ctx, key, "1", monthlySummaryDedupeTTL)
	if err != nil {
		logger.Warnw("worker_monthly_summary_dedupe_failed", "month", month, "error", err)
		return
	}
	if !ok {
		s.markSummaryDone(month)
		return
	}

	if err := s.dispatchMonthlySummary(ctx, month); err != nil {
		// 调度失败释放去重键，下个检查周期重试
		if delErr := cache.Del(ctx, key); delErr != nil {
			logger.Warnw("worker_monthly_summary_dedupe_release_failed", "month", month, "error", delErr)
		}
		logger.Warnw("worker_monthly_summary_schedule_failed", "month", month, "error", err)
		return
	}

	s.markSummaryDone(month)
	logger.Infow("worker_monthly_summary_scheduled", "month", month)
}

func (s *Service) dispatchMonthlySummary(ctx context.Context, month string) error {
	payload := queue.MonthlySummaryPayload{Month: month}
	if s.consumer.QueueClient.Enabled() {
		return s.consumer.QueueClient.EnqueueMonthlySummary(payload, asynq.MaxRetry(3))
	}
	_, err := s.consumer.CommissionService.PublishMonthlySummary(ctx, month)
	return err
}

func (s *Service) markSummaryDone(month string) {
	s.summaryMu.Lock()
	s.lastSummaryMonth = month
	s.summaryMu.Unlock()
}

// previousMonthLabel 返回 now 所在月的上一个自然月，格式 2006-01
func previousMonthLabel(now time.Time) string {
	return now.AddDate(0, 0, -now.Day()).Format("2006-01")
}
