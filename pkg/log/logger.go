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

package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Logger 简单封装，供 internal 使用；配置了 File 时持有日志文件句柄
type Logger struct {
	*slog.Logger
	out       io.Writer
	file      *os.File
	closeOnce sync.Once
}

// Config 日志配置（可与 config 包对接）
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File 非空时日志只写入该文件；启动时截断，每次运行一份干净的日志
	File string `mapstructure:"file"`
}

// ParseLevel 将配置中的级别字符串转换为 slog.Level，未知值按 info 处理
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger 根据配置创建 Logger，cfg 可为 nil 使用默认
func NewLogger(cfg *Config) (*Logger, error) {
	var out io.Writer = os.Stdout
	var f *os.File
	if cfg != nil && cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "" {
			_ = os.MkdirAll(dir, 0o755)
		}
		var err error
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败: %w", err)
		}
		out = f
	}
	l := NewWithWriter(cfg, out)
	l.file = f
	return l, nil
}

// NewWithWriter 使用指定输出创建 Logger（测试或嵌入场景）
func NewWithWriter(cfg *Config, w io.Writer) *Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Level != "" {
		level = ParseLevel(cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if cfg != nil && cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(h), out: w}
}

// Writer 日志输出目标，供 Hertz 等第三方日志共用
func (l *Logger) Writer() io.Writer {
	return l.out
}

// Nop 丢弃所有输出的 Logger
func Nop() *Logger {
	return NewWithWriter(&Config{Level: "error"}, io.Discard)
}

// Close 写入结束行并关闭日志文件；未配置文件时为空操作，可重复调用
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file == nil {
			return
		}
		l.Info("goodbye :)")
		if syncErr := l.file.Sync(); syncErr != nil {
			err = syncErr
		}
		if closeErr := l.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}
