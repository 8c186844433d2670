package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"

	"autoback/internal/api/http/middleware"
)

// defaultRateLimit 管理接口每秒请求上限
const defaultRateLimit = 20

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, middleware *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Build 创建 Hertz 服务并注册路由；opts 用于追加 tracer 等选项
func (r *Router) Build(addr string, opts ...config.Option) *server.Hertz {
	opts = append([]config.Option{server.WithHostPorts(addr)}, opts...)
	h := server.Default(opts...)
	h.Use(r.middleware.Logger(), r.middleware.ReadOnly(), r.middleware.RateLimit(defaultRateLimit))
	r.SetupRoutes(h)
	return h
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes(h *server.Hertz) {
	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)
	api.GET("/status", r.handler.Status)
	api.GET("/jobs", r.handler.ListJobs)

	h.GET("/metrics", r.handler.Metrics)
}
