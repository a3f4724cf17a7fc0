package queue

import (
	"time"

	"github.com/astrocyte/PSOLOMON/internal/config"
	"github.com/astrocyte/PSOLOMON/internal/constants"

	"github.com/hibiken/asynq"
)

// DefaultQueue 默认队列名称
const DefaultQueue = constants.QueueDefault

// defaultTaskTimeout 单个任务的执行超时，SMTP 阻塞不应拖垮 worker
const defaultTaskTimeout = time.Minute

// Client 队列客户端封装
// 队列未启用时所有入队操作降级为空操作，调用方无需判断
type Client struct {
	client       *asynq.Client
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	c := &Client{defaultQueue: DefaultQueue}
	if cfg == nil || !cfg.Enabled {
		return c, nil
	}
	c.client = asynq.NewClient(redisOptFromConfig(cfg))
	return c, nil
}

// Enabled 判断队列是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// enqueue 统一入队，默认写入主队列并附带执行超时
func (c *Client) enqueue(task *asynq.Task, buildErr error, opts []asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	if buildErr != nil {
		return buildErr
	}
	options := append([]asynq.Option{
		asynq.Queue(c.defaultQueue),
		asynq.Timeout(defaultTaskTimeout),
	}, opts...)
	_, err := c.client.Enqueue(task, options...)
	return err
}

// EnqueueNotificationDispatch 推送通知分发任务
func (c *Client) EnqueueNotificationDispatch(payload NotificationDispatchPayload, opts ...asynq.Option) error {
	task, err := NewNotificationDispatchTask(payload)
	return c.enqueue(task, err, opts)
}

// EnqueueMonthlySummary 推送月度佣金汇总任务
func (c *Client) EnqueueMonthlySummary(payload MonthlySummaryPayload, opts ...asynq.Option) error {
	task, err := NewMonthlySummaryTask(payload)
	return c.enqueue(task, err, opts)
}

// BuildServerConfig 生成队列服务端配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return redisOptFromConfig(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

// redisOptFromConfig 从配置构造 asynq 的 Redis 连接参数
func redisOptFromConfig(cfg *config.QueueConfig) asynq.RedisClientOpt {
	if cfg == nil {
		return asynq.RedisClientOpt{Addr: (config.QueueConfig{}).Addr()}
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
