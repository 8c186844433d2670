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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigPath 守护进程默认配置文件位置
const DefaultConfigPath = "/config/autoback/config.ini"

// EnvPrefix 环境变量前缀，如 AUTOBACK_BACKUP_ROOT_BACKUP_PATH
const EnvPrefix = "AUTOBACK"

// Config 应用配置结构体
type Config struct {
	Backup       BackupConfig       `mapstructure:"backup" yaml:"backup"`
	Platform     PlatformConfig     `mapstructure:"platform" yaml:"platform"`
	Notification NotificationConfig `mapstructure:"notification" yaml:"notification"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	History      HistoryConfig      `mapstructure:"history" yaml:"history"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Retention    RetentionConfig    `mapstructure:"retention" yaml:"retention"`
	Admin        AdminConfig        `mapstructure:"admin" yaml:"admin"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring" yaml:"monitoring"`
}

// BackupConfig 归档输出与轮询配置
type BackupConfig struct {
	RootBackupPath      string `mapstructure:"root_backup_path" yaml:"root_backup_path"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	ChunkSize           int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	StagingDir          string `mapstructure:"staging_dir" yaml:"staging_dir"` // 空则为 <root>/.staging
	SaveRoot            string `mapstructure:"save_root" yaml:"save_root"`
}

// PollInterval 轮询间隔；<=0 时按 1s
func (b BackupConfig) PollInterval() time.Duration {
	if b.PollIntervalSeconds <= 0 {
		return time.Second
	}
	return time.Duration(b.PollIntervalSeconds) * time.Second
}

// PlatformConfig 平台桥接配置（身份解析数据来源）
type PlatformConfig struct {
	StateFile string `mapstructure:"state_file" yaml:"state_file"`
}

// NotificationConfig 归档开始/结束的旁路提示
type NotificationConfig struct {
	Enabled     bool   `mapstructure:"notification_enabled" yaml:"notification_enabled"`
	Kind        string `mapstructure:"kind" yaml:"kind"` // log | webhook
	WebhookURL  string `mapstructure:"webhook_url" yaml:"webhook_url"`
	MinInterval string `mapstructure:"min_interval" yaml:"min_interval"` // 如 "1s"
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// HistoryConfig 归档任务记录存储
type HistoryConfig struct {
	Type     string `mapstructure:"type" yaml:"type"` // memory | postgres
	DSN      string `mapstructure:"dsn" yaml:"dsn"`   // Postgres 连接串，type=postgres 时必填
	Capacity int    `mapstructure:"capacity" yaml:"capacity"`
}

// CacheConfig 应用名缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type" yaml:"type"` // memory | redis
	Addr     string `mapstructure:"addr" yaml:"addr"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Password string `mapstructure:"password" yaml:"password"`
	TTL      string `mapstructure:"ttl" yaml:"ttl"`
}

// RetentionConfig 归档保留策略
type RetentionConfig struct {
	Enable     bool `mapstructure:"enable" yaml:"enable"`
	KeepPerApp int  `mapstructure:"keep_per_app" yaml:"keep_per_app"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// AdminConfig 只读管理接口
type AdminConfig struct {
	Enable bool   `mapstructure:"enable" yaml:"enable"`
	Host   string `mapstructure:"host" yaml:"host"`
	Port   int    `mapstructure:"port" yaml:"port"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable" yaml:"enable"`
	ServiceName    string `mapstructure:"service_name" yaml:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint" yaml:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure" yaml:"insecure"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backup.root_backup_path", "/autoback")
	v.SetDefault("backup.poll_interval_seconds", 1)
	v.SetDefault("backup.chunk_size", 8192)
	v.SetDefault("backup.staging_dir", "")
	v.SetDefault("backup.save_root", "/config/autoback/saves")
	v.SetDefault("platform.state_file", "/config/autoback/state.json")
	v.SetDefault("notification.notification_enabled", true)
	v.SetDefault("notification.kind", "log")
	v.SetDefault("notification.webhook_url", "")
	v.SetDefault("notification.min_interval", "1s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("history.type", "memory")
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.capacity", 256)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("retention.enable", false)
	v.SetDefault("retention.keep_per_app", 0)
	v.SetDefault("retention.max_age_days", 0)
	v.SetDefault("admin.enable", false)
	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 8089)
	v.SetDefault("monitoring.tracing.enable", false)
	v.SetDefault("monitoring.tracing.service_name", "autoback")
	v.SetDefault("monitoring.tracing.export_endpoint", "localhost:4318")
	v.SetDefault("monitoring.tracing.insecure", true)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default 仅使用默认值与环境变量构建配置（无配置文件时使用）
func Default() (*Config, error) {
	return decode(newViper())
}

// LoadConfig 加载配置文件；格式按扩展名识别（.ini / .yaml / .json 等）
func LoadConfig(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}
	return decode(v)
}

// LoadOrDefault 配置文件不存在时退回默认值，其余读取错误照常返回
func LoadOrDefault(configPath string) (*Config, bool, error) {
	cfg, err := LoadConfig(configPath)
	if err == nil {
		return cfg, true, nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound) {
		def, derr := Default()
		return def, false, derr
	}
	return nil, false, err
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}
	config.normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// normalize 填充依赖其他字段的派生默认值
func (c *Config) normalize() {
	c.Backup.RootBackupPath = strings.TrimRight(c.Backup.RootBackupPath, "/")
	if c.Backup.RootBackupPath == "" {
		c.Backup.RootBackupPath = "/"
	}
	if c.Backup.StagingDir == "" {
		c.Backup.StagingDir = filepath.Join(c.Backup.RootBackupPath, ".staging")
	}
	c.Notification.Kind = strings.ToLower(strings.TrimSpace(c.Notification.Kind))
	c.History.Type = strings.ToLower(strings.TrimSpace(c.History.Type))
	c.Cache.Type = strings.ToLower(strings.TrimSpace(c.Cache.Type))
}

// Validate 校验互相依赖的配置项
func (c *Config) Validate() error {
	if c.Backup.ChunkSize <= 0 || c.Backup.ChunkSize > 1<<20 {
		return fmt.Errorf("backup.chunk_size 超出范围 (1..1048576): %d", c.Backup.ChunkSize)
	}
	switch c.History.Type {
	case "", "memory":
	case "postgres":
		if c.History.DSN == "" {
			return fmt.Errorf("history.type=postgres 时 history.dsn 必填")
		}
	default:
		return fmt.Errorf("未知 history.type: %q", c.History.Type)
	}
	switch c.Cache.Type {
	case "", "memory":
	case "redis":
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache.type=redis 时 cache.addr 必填")
		}
	default:
		return fmt.Errorf("未知 cache.type: %q", c.Cache.Type)
	}
	switch c.Notification.Kind {
	case "", "log":
	case "webhook":
		if c.Notification.Enabled && c.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.kind=webhook 时 notification.webhook_url 必填")
		}
	default:
		return fmt.Errorf("未知 notification.kind: %q", c.Notification.Kind)
	}
	if _, err := ParseDuration(c.Cache.TTL, 0); err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	if _, err := ParseDuration(c.Notification.MinInterval, 0); err != nil {
		return fmt.Errorf("notification.min_interval: %w", err)
	}
	return nil
}

// ParseDuration 解析形如 "10m" 的时长；空字符串返回 def
func ParseDuration(s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}
