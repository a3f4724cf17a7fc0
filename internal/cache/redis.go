package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/astrocyte/PSOLOMON/internal/config"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "pso"

// store Redis 连接与键前缀
type store struct {
	client *redis.Client
	prefix string
}

// active 为 nil 时缓存整体关闭，读写操作安静降级
var active *store

// InitRedis 初始化 Redis 客户端
// cfg 为空或未启用时缓存整体关闭
func InitRedis(cfg *config.RedisConfig) error {
	if cfg == nil || !cfg.Enabled {
		active = nil
		return nil
	}

	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	active = &store{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr(),
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
		prefix: prefix,
	}
	return nil
}

// Ping 探测 Redis 连通性，供启动检查使用
// 缓存未启用时直接通过
func Ping(ctx context.Context) error {
	if !Enabled() {
		return nil
	}
	return active.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接并停用缓存
func Close() error {
	if active == nil || active.client == nil {
		active = nil
		return nil
	}
	err := active.client.Close()
	active = nil
	return err
}

// Enabled 判断缓存是否启用
func Enabled() bool {
	return active != nil && active.client != nil
}

// Client 获取底层 Redis 客户端，未启用时返回 nil
func Client() *redis.Client {
	if !Enabled() {
		return nil
	}
	return active.client
}

func buildKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return active.prefix
	}
	return active.prefix + ":" + trimmed
}

// GetJSON 读取 JSON 缓存，返回是否命中
func GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !Enabled() {
		return false, nil
	}
	raw, err := active.client.Get(ctx, buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON 写入 JSON 缓存
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !Enabled() {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return active.client.Set(ctx, buildKey(key), payload, ttl).Err()
}

// SetNX 写入不存在的键，返回是否写入成功
// 缓存未启用时视为写入成功，去重逻辑随缓存一起关闭
func SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if !Enabled() {
		return true, nil
	}
	return active.client.SetNX(ctx, buildKey(key), value, ttl).Result()
}

// Del 删除缓存键
func Del(ctx context.Context, key string) error {
	if !Enabled() {
		return nil
	}
	return active.client.Del(ctx, buildKey(key)).Err()
}
