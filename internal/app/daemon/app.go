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

// Package daemon 装配并运行归档守护进程
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	apihttp "autoback/internal/api/http"
	"autoback/internal/api/http/middleware"
	"autoback/internal/app"
	"autoback/internal/archive"
	"autoback/internal/export"
	"autoback/internal/identity"
	"autoback/internal/monitor"
	"autoback/internal/notify"
	"autoback/internal/provision"
	"autoback/internal/savedata"
	appconfig "autoback/pkg/config"
	"autoback/pkg/log"
	"autoback/pkg/retention"
)

// Version 守护进程版本，构建时可用 -ldflags 覆盖
var Version = "0.1.0"

// App 守护进程：会话监视器 + 可选的只读管理接口
type App struct {
	config      *appconfig.Config
	bootstrap   *app.Bootstrap
	logger      *log.Logger
	resolver    identity.Resolver
	provisioner *provision.Provisioner
	monitor     *monitor.SessionMonitor
	router      *apihttp.Router
	hertz       *server.Hertz

	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// Options 测试或嵌入时替换默认协作者；零值使用配置构建
type Options struct {
	Resolver identity.Resolver
	Saves    savedata.Store
}

// NewApp 创建守护进程应用
func NewApp(cfg *appconfig.Config) (*App, error) {
	return NewAppWithOptions(cfg, Options{})
}

// NewAppWithOptions 创建守护进程应用，opts 中非 nil 的字段覆盖默认实现
func NewAppWithOptions(cfg *appconfig.Config, opts Options) (*App, error) {
	ctx := context.Background()
	b, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := b.Logger
	slogger := logger.Logger

	ttl, _ := appconfig.ParseDuration(cfg.Cache.TTL, 0)
	inner := opts.Resolver
	if inner == nil {
		inner = identity.NewStateFileResolver(cfg.Platform.StateFile)
	}
	resolver := identity.NewCachedResolver(inner, b.Names, ttl, slogger)

	saves := opts.Saves
	if saves == nil {
		saves = savedata.NewDirStore(cfg.Backup.SaveRoot)
	}

	notifier, err := notify.New(cfg.Notification, slogger)
	if err != nil {
		_ = b.Close(ctx)
		return nil, fmt.Errorf("初始化通知失败: %w", err)
	}

	provisioner := provision.New(slogger)
	exportOpts := export.Options{
		Root:        cfg.Backup.RootBackupPath,
		Names:       resolver,
		Accounts:    resolver,
		Provisioner: provisioner,
		Saves:       saves,
		Builder:     archive.NewBuilder(cfg.Backup.StagingDir, slogger),
		Streamer:    archive.NewStreamer(archive.OSVolume{}, cfg.Backup.ChunkSize, slogger),
		History:     b.History,
		Notifier:    notifier,
		Logger:      slogger,
	}
	if cfg.Retention.Enable {
		exportOpts.Pruner = retention.NewEngine(retention.Policy{
			Enable:     true,
			KeepPerApp: cfg.Retention.KeepPerApp,
			MaxAgeDays: cfg.Retention.MaxAgeDays,
		}, slogger)
	}
	exporter := export.New(exportOpts)

	mon := monitor.New(resolver, exporter, monitor.Options{
		Interval: cfg.Backup.PollInterval(),
		Logger:   slogger,
	})

	a := &App{
		config:      cfg,
		bootstrap:   b,
		logger:      logger,
		resolver:    resolver,
		provisioner: provisioner,
		monitor:     mon,
		done:        make(chan struct{}),
	}
	if cfg.Admin.Enable {
		a.router = apihttp.NewRouter(apihttp.NewHandler(mon, b.History, Version), middleware.NewMiddleware())
	}
	logger.Info("autoback 初始化完成",
		"root", cfg.Backup.RootBackupPath,
		"poll_interval", cfg.Backup.PollInterval().String(),
		"notification", cfg.Notification.Enabled,
		"history", cfg.History.Type,
		"cache", cfg.Cache.Type,
	)
	return a, nil
}

// Logger 应用日志
func (a *App) Logger() *log.Logger {
	return a.logger
}

// Monitor 会话监视器
func (a *App) Monitor() *monitor.SessionMonitor {
	return a.monitor
}

// Start 预建用户目录，启动监视循环与管理接口
func (a *App) Start() error {
	a.logger.Info("启动 autoback", "version", Version)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if dir, ok := a.resolver.(identity.Directory); ok {
		a.provisioner.Sweep(ctx, a.config.Backup.RootBackupPath, dir)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(a.done)
		if err := a.monitor.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("监视循环退出", "error", err)
		}
	}()

	if a.router != nil {
		a.startAdmin()
	}
	a.logger.Info("autoback 启动成功")
	return nil
}

func (a *App) startAdmin() {
	hertzLogger := hertzslog.NewLogger(
		hertzslog.WithOutput(a.logger.Writer()),
		hertzslog.WithLevel(levelVar(a.config.Log.Level)),
	)
	hlog.SetLogger(hertzLogger)

	addr := net.JoinHostPort(a.config.Admin.Host, strconv.Itoa(a.config.Admin.Port))
	var opts []config.Option
	var tracerCfg *hertztracing.Config
	if a.bootstrap.Tracer != nil {
		tracerOpt, cfg := hertztracing.NewServerTracer()
		opts = append(opts, tracerOpt)
		tracerCfg = cfg
	}
	a.hertz = a.router.Build(addr, opts...)
	if tracerCfg != nil {
		a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("管理接口启动", "addr", addr)
		if err := a.hertz.Run(); err != nil {
			a.logger.Error("管理接口退出", "error", err)
		}
	}()
}

func levelVar(level string) *slog.LevelVar {
	v := &slog.LevelVar{}
	v.Set(log.ParseLevel(level))
	return v
}

// Shutdown 先让监视循环在 tick 边界停止，ctx 到期时再取消正在进行的任务
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("关闭 autoback")
	a.monitor.Stop()
	if a.cancel != nil {
		select {
		case <-a.done:
		case <-ctx.Done():
			a.logger.Warn("等待归档任务超时，取消", "error", ctx.Err())
		}
		a.cancel()
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			a.logger.Error("关闭管理接口失败", "error", err)
		}
	}
	a.wg.Wait()
	return a.bootstrap.Close(ctx)
}
