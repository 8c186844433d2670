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

// Package notify 归档开始/结束的旁路提示；失败只记录日志，不影响归档结果
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"autoback/pkg/config"
)

// Job 通知中携带的任务信息
type Job struct {
	ID         string `json:"job_id"`
	AppID      string `json:"app_id"`
	AppName    string `json:"app_name,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
	// Skipped 无存档数据，未写出归档；仅在 End 时有意义
	Skipped bool `json:"skipped,omitempty"`
}

// Result End 时的结果：ok | skipped | failed
func (j Job) Result(err error) string {
	switch {
	case err != nil:
		return "failed"
	case j.Skipped:
		return "skipped"
	default:
		return "ok"
	}
}

// Notifier 归档开始/结束提示
type Notifier interface {
	Begin(ctx context.Context, job Job)
	End(ctx context.Context, job Job, err error)
}

// Noop 不做任何事
type Noop struct{}

func (Noop) Begin(ctx context.Context, job Job)          {}
func (Noop) End(ctx context.Context, job Job, err error) {}

// LogNotifier 写一行日志作为提示
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier logger 可为 nil
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Begin(ctx context.Context, job Job) {
	n.logger.Info("archive indicator on", "job_id", job.ID, "app_id", job.AppID)
}

func (n *LogNotifier) End(ctx context.Context, job Job, err error) {
	n.logger.Info("archive indicator off", "job_id", job.ID, "app_id", job.AppID, "result", job.Result(err))
}

// New 按配置创建 Notifier；未启用时返回 Noop
func New(cfg config.NotificationConfig, logger *slog.Logger) (Notifier, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	switch cfg.Kind {
	case "", "log":
		return NewLogNotifier(logger), nil
	case "webhook":
		interval, err := config.ParseDuration(cfg.MinInterval, time.Second)
		if err != nil {
			return nil, fmt.Errorf("notification.min_interval: %w", err)
		}
		return NewWebhookNotifier(cfg.WebhookURL, interval, logger), nil
	default:
		return nil, fmt.Errorf("不支持的通知类型: %s", cfg.Kind)
	}
}
