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

package app

import (
	"context"
	"errors"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"autoback/internal/history"
	"autoback/internal/storage/cache"
	"autoback/pkg/config"
	"autoback/pkg/log"
	"autoback/pkg/tracing"
)

// Bootstrap 统一初始化：日志、追踪、名称缓存、任务记录
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Tracer  *sdktrace.TracerProvider // 未启用追踪时为 nil
	Names   cache.Store
	History history.Store
}

// NewBootstrap 根据配置创建 Bootstrap；任一步失败都会释放已创建的资源
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	b := &Bootstrap{Config: cfg, Logger: logger}

	if cfg.Monitoring.Tracing.Enable {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    cfg.Monitoring.Tracing.ServiceName,
			ExportEndpoint: cfg.Monitoring.Tracing.ExportEndpoint,
			Insecure:       cfg.Monitoring.Tracing.Insecure,
		})
		if err != nil {
			// 追踪只是旁路，失败不阻止启动
			logger.Warn("链路追踪初始化失败", "error", err)
		} else {
			b.Tracer = tp
			logger.Info("链路追踪已启用", "endpoint", cfg.Monitoring.Tracing.ExportEndpoint)
		}
	}

	b.Names, err = cache.NewCache(ctx, cfg.Cache)
	if err != nil {
		_ = b.Close(ctx)
		return nil, fmt.Errorf("初始化名称缓存失败: %w", err)
	}

	b.History, err = history.NewStore(ctx, cfg.History)
	if err != nil {
		_ = b.Close(ctx)
		return nil, fmt.Errorf("初始化任务记录失败: %w", err)
	}
	return b, nil
}

// Close 按创建的逆序释放资源，最后关闭日志
func (b *Bootstrap) Close(ctx context.Context) error {
	var errs []error
	if b.History != nil {
		errs = append(errs, b.History.Close())
	}
	if b.Names != nil {
		errs = append(errs, b.Names.Close())
	}
	if b.Tracer != nil {
		errs = append(errs, b.Tracer.Shutdown(ctx))
	}
	err := errors.Join(errs...)
	if err != nil {
		b.Logger.Error("释放资源失败", "error", err)
	}
	if cerr := b.Logger.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
