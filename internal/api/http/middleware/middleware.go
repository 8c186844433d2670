// Package middleware 管理接口的 Hertz 中间件
package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"
)

// Middleware 中间件管理器
type Middleware struct{}

// NewMiddleware 创建新的中间件管理器
func NewMiddleware() *Middleware {
	return &Middleware{}
}

// ReadOnly 管理接口只读：仅放行 GET / HEAD
func (m *Middleware) ReadOnly() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		method := string(c.Method())
		if method != consts.MethodGet && method != consts.MethodHead {
			c.AbortWithStatusJSON(consts.StatusMethodNotAllowed, map[string]string{
				"error": "admin API is read-only",
			})
			return
		}
		c.Next(ctx)
	}
}

// RateLimit 全局令牌桶限流；rps<=0 时不限流
func (m *Middleware) RateLimit(rps int) app.HandlerFunc {
	if rps <= 0 {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rps)
	return func(ctx context.Context, c *app.RequestContext) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]string{
				"error": "too many requests",
			})
			return
		}
		c.Next(ctx)
	}
}

// Logger 访问日志
func (m *Middleware) Logger() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		hlog.CtxDebugf(ctx, "%s %s %d %s", c.Method(), c.Path(), c.Response.StatusCode(), time.Since(start))
	}
}
