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

package monitor

import (
	"context"
	"time"

	"autoback/internal/identity"
)

// ArchiveJob 一次离开边沿触发的归档任务；由监视循环创建，同一时刻至多一个
type ArchiveJob struct {
	ID          string
	Application identity.ApplicationIdentity
	Account     identity.AccountIdentity
	// OutputPath 由 JobRunner 解析显示名后确定
	OutputPath string
	Timestamp  time.Time
}

// JobRunner 同步执行归档任务；返回的错误只用于记录，不影响监视循环
type JobRunner interface {
	Run(ctx context.Context, job ArchiveJob) error
}

// JobRunnerFunc 函数适配器
type JobRunnerFunc func(ctx context.Context, job ArchiveJob) error

// Run 调用 f
func (f JobRunnerFunc) Run(ctx context.Context, job ArchiveJob) error {
	return f(ctx, job)
}
