package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/astrocyte/PSOLOMON/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
// BlockSeconds 大于 0 时，超限后 key 的过期时间拉长到该值，形成惩罚性锁定
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	BlockSeconds  int
	Message       string
}

// 固定窗口计数：INCR 后首次写入设置窗口过期
// 第一次越界时若配置了锁定期则把过期时间拉长为锁定期
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
if tonumber(ARGV[2]) > 0 and current == tonumber(ARGV[3]) + 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[2])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// limitReply 限流脚本的返回值
type limitReply struct {
	count      int64
	ttlSeconds int64
}

func parseLimitReply(result interface{}) (limitReply, bool) {
	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return limitReply{}, false
	}
	count, ok := toInt64(values[0])
	if !ok {
		return limitReply{}, false
	}
	ttl, _ := toInt64(values[1])
	return limitReply{count: count, ttlSeconds: ttl}, true
}

// RateLimitMiddleware Redis 固定窗口限流中间件
// Redis 客户端缺失或规则未配置时直接放行
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := limitKey(c, rule, keyFunc)
		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key},
			rule.WindowSeconds, rule.BlockSeconds, rule.MaxRequests).Result()
		if err != nil {
			abortLimiterUnavailable(c)
			return
		}
		reply, ok := parseLimitReply(result)
		if !ok {
			abortLimiterUnavailable(c)
			return
		}

		if reply.count > int64(rule.MaxRequests) {
			abortRateLimited(c, rule, reply)
			return
		}
		c.Next()
	}
}

func limitKey(c *gin.Context, rule RateLimitRule, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if rule.Prefix != "" {
		key = rule.Prefix + ":" + key
	}
	return key
}

// abortLimiterUnavailable 限流组件不可用时拒绝请求
func abortLimiterUnavailable(c *gin.Context) {
	response.Error(c, response.CodeInternal, "rate limiter is unavailable")
	c.Abort()
}

func abortRateLimited(c *gin.Context, rule RateLimitRule, reply limitReply) {
	waitSeconds := int(reply.ttlSeconds)
	if waitSeconds < 1 {
		waitSeconds = rule.WindowSeconds
	}
	if waitSeconds < 1 {
		waitSeconds = 1
	}
	msg := strings.TrimSpace(rule.Message)
	if msg == "" {
		msg = "too many requests"
	}
	response.Error(c, response.CodeTooManyRequests, fmt.Sprintf("%s, retry in %d seconds", msg, waitSeconds))
	c.Abort()
}

// KeyByIP 使用客户端 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用请求体 JSON 字段 + IP 作为限流 key
// 读完后恢复请求体，后续绑定不受影响
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(strings.TrimSpace(readJSONField(c, field)))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return ""
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	text, _ := payload[field].(string)
	return strings.TrimSpace(text)
}

// toInt64 把 Lua 脚本可能返回的数值类型归一为 int64
func toInt64(value interface{}) (int64, bool) {
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return int64(v.Float()), true
	default:
		return 0, false
	}
}
