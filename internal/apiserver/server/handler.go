// Package server 组装 HTTP 路由与中间件
package server

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"vaxcert/internal/apiserver/admin"
	"vaxcert/internal/apiserver/auth"
	"vaxcert/internal/apiserver/certificate"
	"vaxcert/internal/reward"
	"vaxcert/internal/shared/storage"
	"vaxcert/pkg/logging"
)

// ObjectStore 证书文件存储,由 objstore.Client 实现
type ObjectStore = certificate.ObjectStore

// Handler 聚合全部 HTTP 处理器与中间件
type Handler struct {
	metrics *Metrics
	logger  *logging.Logger
	authCfg auth.Config

	authHandler  *auth.Handler
	certHandler  *certificate.Handler
	adminHandler *admin.Handler
}

// NewHandler 组装处理器。依赖在 main 中创建并注入。
func NewHandler(store storage.PersistentStore, objects ObjectStore, authCfg auth.Config, logger *logging.Logger) *Handler {
	metrics := NewMetrics("vaxcert")
	rewards := reward.NewService(store, metrics)

	return &Handler{
		metrics:      metrics,
		logger:       logger,
		authCfg:      authCfg,
		authHandler:  auth.NewHandler(store, authCfg),
		certHandler:  certificate.NewHandler(store, objects, rewards, metrics),
		adminHandler: admin.NewHandler(store, metrics),
	}
}

// Router 构建完整路由。中间件顺序:日志 → 指标 → 认证 → 业务路由。
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health)
	mux.Handle("GET /metrics", MetricsHandler())

	h.authHandler.RegisterRoutes(mux)
	h.certHandler.RegisterRoutes(mux)
	h.adminHandler.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = auth.Middleware(h.authCfg)(handler)
	handler = h.metrics.MetricsMiddleware(handler)
	handler = h.logRequests(handler)
	return handler
}

// Health 健康检查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "OK",
		"message": "Server is running",
	})
}

// logRequests 请求日志中间件
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		clientIP, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			clientIP = r.RemoteAddr
		}
		h.logger.HTTPRequestLog(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start), clientIP)
	})
}
