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

// Package history 记录每个归档任务的结果，供管理接口查询
package history

import (
	"context"
	"fmt"
	"time"

	"autoback/pkg/config"
	"autoback/pkg/utils"
)

// Status 任务结果
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// DefaultCapacity 内存记录默认容量
const DefaultCapacity = 256

// JobRecord 单个归档任务的结果
type JobRecord struct {
	JobID      string    `json:"job_id"`
	AppID      string    `json:"app_id"`
	AppName    string    `json:"app_name,omitempty"`
	AccountUID string    `json:"account_uid,omitempty"`
	Nickname   string    `json:"nickname,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	Status     Status    `json:"status"`
	Bytes      int64     `json:"bytes"`
	Checksum   string    `json:"checksum,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Filter 查询条件；零值表示不过滤
type Filter struct {
	Limit  int
	AppID  string
	Status Status
}

func (f Filter) match(r JobRecord) bool {
	if f.AppID != "" && r.AppID != f.AppID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// Store 任务记录存储
type Store interface {
	Record(ctx context.Context, rec JobRecord) error
	// List 按完成时间倒序返回
	List(ctx context.Context, f Filter) ([]JobRecord, error)
	Close() error
}

// NewStore 根据配置创建 Store：memory | postgres
func NewStore(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(utils.DefaultInt(cfg.Capacity, DefaultCapacity)), nil
	case "postgres":
		s, err := NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("不支持的 history 类型: %s", cfg.Type)
	}
}
