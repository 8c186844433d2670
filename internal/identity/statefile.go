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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"autoback/internal/naming"
	apperrors "autoback/pkg/errors"
)

// platformState 平台桥接进程写出的状态文件
//
//	{
//	  "active_application": {"id": "0100F2C0115B6000"},
//	  "last_opened_account": "00112233445566778899AABBCCDDEEFF",
//	  "accounts": [{"uid": "00112233445566778899AABBCCDDEEFF", "nickname": "Link"}],
//	  "titles": {"0100F2C0115B6000": "The Legend of Zelda"}
//	}
type platformState struct {
	ActiveApplication *struct {
		ID string `json:"id"`
	} `json:"active_application"`
	LastOpenedAccount string            `json:"last_opened_account"`
	Accounts          []stateAccount    `json:"accounts"`
	Titles            map[string]string `json:"titles"`
}

type stateAccount struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
}

// StateFileResolver 每次调用重新读取状态文件，实现 Resolver 与 Directory
type StateFileResolver struct {
	path string
}

// NewStateFileResolver 创建基于状态文件的解析器
func NewStateFileResolver(path string) *StateFileResolver {
	return &StateFileResolver{path: path}
}

func (r *StateFileResolver) load() (*platformState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, apperrors.E(apperrors.KindResolverUnavailable, "read state", r.path, err)
	}
	var st platformState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, apperrors.E(apperrors.KindResolverUnavailable, "decode state", r.path, err)
	}
	return &st, nil
}

// ActiveApplication 状态中无前台应用进程时视为系统主界面
func (r *StateFileResolver) ActiveApplication(ctx context.Context) (ApplicationIdentity, error) {
	st, err := r.load()
	if err != nil {
		return ApplicationIdentity{}, fmt.Errorf("%w: %w", ErrNotRunning, err)
	}
	if st.ActiveApplication == nil || strings.TrimSpace(st.ActiveApplication.ID) == "" {
		return ApplicationIdentity{ID: ShellID}, nil
	}
	id, err := ParseAppID(st.ActiveApplication.ID)
	if err != nil {
		return ApplicationIdentity{}, fmt.Errorf("%w: %w", ErrNotRunning,
			apperrors.E(apperrors.KindResolverUnavailable, "parse app id", r.path, err))
	}
	return ApplicationIdentity{ID: id}, nil
}

// DisplayName 从 titles 表查名称，缺失时返回空串
func (r *StateFileResolver) DisplayName(ctx context.Context, app ApplicationIdentity) (string, error) {
	if app.DisplayName != "" {
		return app.DisplayName, nil
	}
	st, err := r.load()
	if err != nil {
		return "", err
	}
	key := naming.HexID(app.ID)
	for k, v := range st.Titles {
		if strings.EqualFold(strings.TrimPrefix(k, "0x"), key) {
			return v, nil
		}
	}
	return "", nil
}

// DrivingAccount 最近打开的账户；昵称从 accounts 中查找，找不到时为空
func (r *StateFileResolver) DrivingAccount(ctx context.Context) (AccountIdentity, error) {
	st, err := r.load()
	if err != nil {
		return AccountIdentity{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if strings.TrimSpace(st.LastOpenedAccount) == "" {
		return AccountIdentity{}, ErrUnavailable
	}
	uid, err := ParseAccountUID(st.LastOpenedAccount)
	if err != nil {
		return AccountIdentity{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if uid.IsZero() {
		return AccountIdentity{}, ErrUnavailable
	}
	nickname := ""
	for _, a := range st.Accounts {
		if other, err := ParseAccountUID(a.UID); err == nil && other == uid {
			nickname = a.Nickname
			break
		}
	}
	return NewAccount(uid, nickname), nil
}

// Accounts 列出全部已知账户；格式错误的条目跳过
func (r *StateFileResolver) Accounts(ctx context.Context) ([]AccountIdentity, error) {
	st, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]AccountIdentity, 0, len(st.Accounts))
	for _, a := range st.Accounts {
		uid, err := ParseAccountUID(a.UID)
		if err != nil || uid.IsZero() {
			continue
		}
		out = append(out, NewAccount(uid, a.Nickname))
	}
	return out, nil
}
