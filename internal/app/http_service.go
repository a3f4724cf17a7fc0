package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPService 把 http.Server 适配成可托管服务
type HTTPService struct {
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &HTTPService{server: srv}
}

// ready 判断内部 server 是否就绪
func (s *HTTPService) ready() bool { return s != nil && s.server != nil }

// Name 服务名称
func (s *HTTPService) Name() string { return "http" }

// Addr 监听地址
func (s *HTTPService) Addr() string {
	if !s.ready() {
		return ""
	}
	return s.server.Addr
}

// Start 监听并处理请求
// Shutdown 触发的 ErrServerClosed 不算错误
func (s *HTTPService) Start(ctx context.Context) error {
	if !s.ready() {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅停机，等待在途请求完成
func (s *HTTPService) Stop(ctx context.Context) error {
	if !s.ready() {
		return nil
	}
	return s.server.Shutdown(ctx)
}
