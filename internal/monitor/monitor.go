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

// Package monitor 轮询前台应用，检测切换边沿并在离开应用时触发归档任务
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoback/internal/identity"
	apperrors "autoback/pkg/errors"
	"autoback/pkg/metrics"
)

// DefaultInterval 默认轮询间隔
const DefaultInterval = time.Second

// State 监视器状态
type State string

const (
	StateIdle     State = "idle"
	StateTracking State = "tracking"
)

// Options SessionMonitor 可选参数
type Options struct {
	Interval time.Duration
	Logger   *slog.Logger
	// Now 测试注入时钟；nil 为 time.Now
	Now func() time.Time
}

// Status 供管理接口读取的只读快照
type Status struct {
	State       State     `json:"state"`
	AppID       string    `json:"app_id,omitempty"`
	AppName     string    `json:"app_name,omitempty"`
	Nickname    string    `json:"nickname,omitempty"`
	LastEdgeAt  time.Time `json:"last_edge_at,omitempty"`
	LastJobID   string    `json:"last_job_id,omitempty"`
	JobsRun     int       `json:"jobs_run"`
	JobsFailed  int       `json:"jobs_failed"`
	TickCount   int64     `json:"tick_count"`
	PollSeconds float64   `json:"poll_interval_seconds"`
}

// SessionMonitor 会话监视器。
// previous 与缓存账户只由轮询循环写入；mu 仅用于与 Snapshot 的并发读。
type SessionMonitor struct {
	resolver identity.Resolver
	runner   JobRunner
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu         sync.Mutex
	previous   identity.ApplicationIdentity
	account    identity.AccountIdentity
	accountFor uint64 // account 缓存对应的应用 ID
	lastEdgeAt time.Time
	lastJobID  string
	jobsRun    int
	jobsFailed int
	ticks      int64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New 创建 SessionMonitor
func New(resolver identity.Resolver, runner JobRunner, opts Options) *SessionMonitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionMonitor{
		resolver: resolver,
		runner:   runner,
		interval: opts.Interval,
		logger:   opts.Logger,
		now:      opts.Now,
		stopCh:   make(chan struct{}),
	}
}

// Prime 取首个样本作为 previous；若已在某应用内则立即解析并缓存驱动账户
func (m *SessionMonitor) Prime(ctx context.Context) {
	current, err := m.resolver.ActiveApplication(ctx)
	if err != nil {
		m.resolverFailed("active_application", err)
		return
	}
	m.mu.Lock()
	m.previous = current
	m.mu.Unlock()
	m.logger.Info("initial application", "app_id", current.Hex())
	if !current.IsIdle() {
		m.cacheAccount(ctx, current)
	}
	m.setTrackingGauge(current)
}

// Tick 执行一次轮询。返回值只反映身份查询是否成功，归档失败不会出现在这里。
func (m *SessionMonitor) Tick(ctx context.Context) error {
	m.mu.Lock()
	m.ticks++
	m.mu.Unlock()

	current, err := m.resolver.ActiveApplication(ctx)
	if err != nil {
		m.resolverFailed("active_application", err)
		return err
	}
	previous := m.previous
	if current.ID == previous.ID {
		return nil
	}

	m.logger.Info("application changed", "from", previous.Hex(), "to", current.Hex())
	m.mu.Lock()
	m.lastEdgeAt = m.now()
	m.mu.Unlock()

	if !previous.IsIdle() {
		metrics.EdgeTotal.WithLabelValues("departure").Inc()
		m.depart(ctx, previous)
	}

	// 无论归档结果如何都前进，失败的任务不会在下一次 tick 重试
	m.mu.Lock()
	m.previous = current
	m.mu.Unlock()

	if !current.IsIdle() {
		metrics.EdgeTotal.WithLabelValues("arrival").Inc()
		m.cacheAccount(ctx, current)
	}
	m.setTrackingGauge(current)
	return nil
}

// depart 离开 previous：有缓存账户时运行归档任务
func (m *SessionMonitor) depart(ctx context.Context, previous identity.ApplicationIdentity) {
	account, ok := m.cachedAccount(previous.ID)
	if !ok {
		m.logger.Info(apperrors.Render(apperrors.E(apperrors.KindNoActiveAccount, "archive", previous.Hex(), nil)))
		return
	}

	job := ArchiveJob{
		ID:          uuid.NewString(),
		Application: previous,
		Account:     account,
		Timestamp:   m.now(),
	}
	m.logger.Info("archive job started", "job_id", job.ID, "app_id", previous.Hex(), "nickname", account.Nickname)
	err := m.runner.Run(ctx, job)

	m.mu.Lock()
	m.jobsRun++
	m.lastJobID = job.ID
	if err != nil {
		m.jobsFailed++
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("archive job failed", "job_id", job.ID, "error", apperrors.Render(err))
		return
	}
	m.logger.Info("archive job finished", "job_id", job.ID)
}

// cacheAccount 进入应用时解析驱动账户；失败则清空缓存，离开时跳过归档
func (m *SessionMonitor) cacheAccount(ctx context.Context, app identity.ApplicationIdentity) {
	account, err := m.resolver.DrivingAccount(ctx)
	if err == nil && account.IsZero() {
		err = identity.ErrUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.account = identity.AccountIdentity{}
		m.accountFor = 0
		metrics.ResolverErrorsTotal.WithLabelValues("driving_account").Inc()
		m.logger.Warn("driving account not cached", "app_id", app.Hex(), "error", apperrors.Render(err))
		return
	}
	m.account = account
	m.accountFor = app.ID
	m.logger.Info("driving account cached", "app_id", app.Hex(), "nickname", account.Nickname)
}

func (m *SessionMonitor) cachedAccount(appID uint64) (identity.AccountIdentity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accountFor != appID || m.account.IsZero() {
		return identity.AccountIdentity{}, false
	}
	return m.account, true
}

func (m *SessionMonitor) resolverFailed(op string, err error) {
	metrics.ResolverErrorsTotal.WithLabelValues(op).Inc()
	m.logger.Warn("identity query failed, no change this tick", "op", op, "error", apperrors.Render(err))
}

func (m *SessionMonitor) setTrackingGauge(current identity.ApplicationIdentity) {
	if current.IsIdle() {
		metrics.MonitorTracking.Set(0)
		return
	}
	metrics.MonitorTracking.Set(1)
}

// Run 先 Prime，再按间隔循环 Tick，直到 ctx 取消或 Stop；取消只在 tick 之间生效
func (m *SessionMonitor) Run(ctx context.Context) error {
	m.Prime(ctx)
	for {
		select {
		case <-m.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.interval):
		}
		_ = m.Tick(ctx)
	}
}

// Stop 请求 Run 在下一个 tick 边界退出；可重复调用
func (m *SessionMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Snapshot 当前状态
func (m *SessionMonitor) Snapshot() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		State:       StateIdle,
		LastEdgeAt:  m.lastEdgeAt,
		LastJobID:   m.lastJobID,
		JobsRun:     m.jobsRun,
		JobsFailed:  m.jobsFailed,
		TickCount:   m.ticks,
		PollSeconds: m.interval.Seconds(),
	}
	if !m.previous.IsIdle() {
		st.State = StateTracking
		st.AppID = m.previous.Hex()
		st.AppName = m.previous.DisplayName
		if m.accountFor == m.previous.ID {
			st.Nickname = m.account.Nickname
		}
	}
	return st
}
