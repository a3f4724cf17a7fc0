package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newJSONContext(t *testing.T, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/affiliate/apply", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"
	return c
}

func TestKeyByIPAndJSONField(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "email lowered and trimmed", body: `{"email":" Jane.Smith@Example.com "}`, want: "jane.smith@example.com|1.2.3.4"},
		{name: "missing field falls back to ip", body: `{"phone":"555-0100"}`, want: "1.2.3.4"},
		{name: "broken json falls back to ip", body: `{"email":`, want: "1.2.3.4"},
		{name: "empty body falls back to ip", body: ``, want: "1.2.3.4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newJSONContext(t, tc.body)
			if key := KeyByIPAndJSONField("email")(c); key != tc.want {
				t.Fatalf("key want %q got %q", tc.want, key)
			}
		})
	}
}

func TestKeyExtractionRestoresBody(t *testing.T) {
	c := newJSONContext(t, `{"email":"June.Park@Example.com"}`)
	KeyByIPAndJSONField("email")(c)

	// key 提取读过一遍 Body，后续 ShouldBindJSON 仍要能拿到原始内容
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "June.Park@Example.com") {
		t.Fatalf("request body not restored, got %q", body)
	}
}

func TestLimitKeyComposition(t *testing.T) {
	c := newJSONContext(t, "")

	if key := limitKey(c, RateLimitRule{Prefix: "apply"}, KeyByIP); key != "apply:1.2.3.4" {
		t.Fatalf("prefixed key want apply:1.2.3.4 got %q", key)
	}
	if key := limitKey(c, RateLimitRule{}, nil); key != "1.2.3.4" {
		t.Fatalf("nil key func should use client ip, got %q", key)
	}
	blank := func(*gin.Context) string { return "   " }
	if key := limitKey(c, RateLimitRule{}, blank); key != "1.2.3.4" {
		t.Fatalf("blank key should fall back to client ip, got %q", key)
	}
}

func TestParseLimitReply(t *testing.T) {
	reply, ok := parseLimitReply([]interface{}{int64(3), int64(42)})
	if !ok || reply.count != 3 || reply.ttlSeconds != 42 {
		t.Fatalf("reply want {3 42} got %+v ok=%v", reply, ok)
	}

	// TTL 解析失败只丢 TTL，不影响计数
	reply, ok = parseLimitReply([]interface{}{int64(5), "not-a-ttl"})
	if !ok || reply.count != 5 || reply.ttlSeconds != 0 {
		t.Fatalf("reply want {5 0} got %+v ok=%v", reply, ok)
	}

	for _, bad := range []interface{}{
		"scalar",
		[]interface{}{int64(1)},
		[]interface{}{"bad", int64(1)},
		nil,
	} {
		if _, ok := parseLimitReply(bad); ok {
			t.Fatalf("expected parse failure for %#v", bad)
		}
	}
}

func TestRateLimitMiddlewareBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// 该客户端指向不存在的地址；规则未生效时中间件不应碰它
	deadClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	cases := []struct {
		name   string
		client *redis.Client
		rule   RateLimitRule
	}{
		{name: "nil client", client: nil, rule: RateLimitRule{WindowSeconds: 60, MaxRequests: 1}},
		{name: "zero window", client: deadClient, rule: RateLimitRule{MaxRequests: 1}},
		{name: "zero max requests", client: deadClient, rule: RateLimitRule{WindowSeconds: 60}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimitMiddleware(tc.client, tc.rule, KeyByIP))
			r.GET("/ping", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"ok": true})
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

			if w.Code != http.StatusOK {
				t.Fatalf("status want 200 got %d", w.Code)
			}
			if !strings.Contains(w.Body.String(), `"ok":true`) {
				t.Fatalf("expected handler response, got %s", w.Body.String())
			}
		})
	}
}

func TestToInt64(t *testing.T) {
	accepted := map[string]struct {
		input interface{}
		want  int64
	}{
		"int64":   {input: int64(10), want: 10},
		"int":     {input: int(11), want: 11},
		"uint8":   {input: uint8(12), want: 12},
		"float64": {input: float64(13.9), want: 13},
		"float32": {input: float32(14), want: 14},
	}
	for name, tc := range accepted {
		got, ok := toInt64(tc.input)
		if !ok || got != tc.want {
			t.Fatalf("%s: want (%d,true) got (%d,%v)", name, tc.want, got, ok)
		}
	}

	for _, rejected := range []interface{}{"bad", nil, []byte("1")} {
		if got, ok := toInt64(rejected); ok {
			t.Fatalf("%#v: expected rejection, got %d", rejected, got)
		}
	}
}
