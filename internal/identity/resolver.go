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

package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotRunning 无法确定前台应用
	ErrNotRunning = errors.New("identity: active application not available")
	// ErrUnavailable 无法确定驱动账户
	ErrUnavailable = errors.New("identity: driving account unavailable")
)

// Resolver 身份解析；核心流程同步调用，任何错误在当前 tick 视为「无变化」
type Resolver interface {
	// ActiveApplication 当前前台应用；无应用进程时返回 ShellID
	ActiveApplication(ctx context.Context) (ApplicationIdentity, error)
	// DisplayName 应用显示名，可能为空（调用方回退为 HexID）
	DisplayName(ctx context.Context, app ApplicationIdentity) (string, error)
	// DrivingAccount 最近一次交互会话的账户，与前台应用无关
	DrivingAccount(ctx context.Context) (AccountIdentity, error)
}

// Directory 可选能力：列出全部已知账户，用于启动时预建用户目录
type Directory interface {
	Accounts(ctx context.Context) ([]AccountIdentity, error)
}
