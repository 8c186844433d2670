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

package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Engine 按 Policy 清理单个应用目录中的旧归档
type Engine struct {
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine 创建留存引擎；logger 可为 nil
func NewEngine(policy Policy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policy: policy, logger: logger, now: time.Now}
}

// Policy 当前策略
func (e *Engine) Policy() Policy {
	return e.policy
}

type candidate struct {
	path    string
	name    string
	modTime time.Time
}

// Prune 删除 dir 中超出 KeepPerApp 的最旧 *.zip 以及超过 MaxAgeDays 的 *.zip，返回删除数量。
// 单个文件删除失败不会中止，错误合并返回。
func (e *Engine) Prune(ctx context.Context, dir string) (int, error) {
	if !e.policy.Active() {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("retention: read %s: %w", dir, err)
	}

	var cands []candidate
	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(strings.ToLower(ent.Name()), ".zip") {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		cands = append(cands, candidate{
			path:    filepath.Join(dir, ent.Name()),
			name:    ent.Name(),
			modTime: info.ModTime(),
		})
	}
	// 新的在前；同一时刻按文件名（含时间戳）倒序
	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].modTime.Equal(cands[j].modTime) {
			return cands[i].modTime.After(cands[j].modTime)
		}
		return cands[i].name > cands[j].name
	})

	now := e.now()
	deleted := 0
	var errs []error
	for i, c := range cands {
		overCount := e.policy.KeepPerApp > 0 && i >= e.policy.KeepPerApp
		if !overCount && !e.policy.Expired(c.modTime, now) {
			continue
		}
		if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		deleted++
		e.logger.Info("retention removed archive", "path", c.path)
	}
	return deleted, errors.Join(errs...)
}
