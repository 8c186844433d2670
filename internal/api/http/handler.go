// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"autoback/internal/history"
	"autoback/internal/monitor"
	"autoback/pkg/metrics"
)

// DefaultJobsLimit /api/jobs 默认条数
const DefaultJobsLimit = 20

// MaxJobsLimit /api/jobs 最大条数
const MaxJobsLimit = 500

// StatusSource 监视器状态来源
type StatusSource interface {
	Snapshot() monitor.Status
}

// Handler 管理接口处理器；status、jobs 可为 nil
type Handler struct {
	status  StatusSource
	jobs    history.Store
	version string
	started time.Time
}

// NewHandler 创建处理器
func NewHandler(status StatusSource, jobs history.Store, version string) *Handler {
	return &Handler{status: status, jobs: jobs, version: version, started: time.Now()}
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"status":         "ok",
		"service":        "autoback",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().Unix(),
	})
}

// Status 监视器快照
// GET /api/status
func (h *Handler) Status(c context.Context, ctx *app.RequestContext) {
	if h.status == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "monitor is not running",
		})
		return
	}
	ctx.JSON(consts.StatusOK, h.status.Snapshot())
}

// ListJobs 最近的归档任务，按完成时间倒序
// GET /api/jobs?limit=N&app_id=HEX&status=completed
func (h *Handler) ListJobs(c context.Context, ctx *app.RequestContext) {
	if h.jobs == nil {
		ctx.JSON(consts.StatusServiceUnavailable, map[string]string{
			"error": "job history is not configured",
		})
		return
	}
	limit := DefaultJobsLimit
	if s := ctx.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			ctx.JSON(consts.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}
	if limit > MaxJobsLimit {
		limit = MaxJobsLimit
	}
	status := history.Status(ctx.Query("status"))
	switch status {
	case "", history.StatusCompleted, history.StatusFailed, history.StatusSkipped:
	default:
		ctx.JSON(consts.StatusBadRequest, map[string]string{
			"error": "unknown status: " + string(status),
		})
		return
	}

	records, err := h.jobs.List(c, history.Filter{
		Limit:  limit,
		AppID:  ctx.Query("app_id"),
		Status: status,
	})
	if err != nil {
		hlog.CtxErrorf(c, "list job history failed: %v", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{
			"error": "failed to list jobs",
		})
		return
	}
	if records == nil {
		records = []history.JobRecord{}
	}
	ctx.JSON(consts.StatusOK, map[string]interface{}{
		"jobs":  records,
		"count": len(records),
	})
}

// Metrics Prometheus 文本格式
// GET /metrics
func (h *Handler) Metrics(c context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		hlog.CtxErrorf(c, "gather metrics failed: %v", err)
		ctx.String(consts.StatusInternalServerError, err.Error())
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
