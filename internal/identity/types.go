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
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"autoback/internal/naming"
)

// ShellID 系统主界面（home menu）的应用标识；与 0 一样视为空闲，永不归档
const ShellID uint64 = 0x0100000000001000

// MaxNicknameBytes 账户昵称最大字节数
const MaxNicknameBytes = 32

// ApplicationIdentity 前台应用标识；每个 tick 重新采样，不持久化
type ApplicationIdentity struct {
	ID          uint64 `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// IsIdle 为 0 或系统主界面时为 true
func (a ApplicationIdentity) IsIdle() bool {
	return a.ID == 0 || a.ID == ShellID
}

// Hex 定宽十六进制标识
func (a ApplicationIdentity) Hex() string {
	return naming.HexID(a.ID)
}

// String 用于日志
func (a ApplicationIdentity) String() string {
	if a.DisplayName == "" {
		return a.Hex()
	}
	return a.Hex() + " (" + a.DisplayName + ")"
}

// AccountUID 128 位账户标识；全 0 表示未知
type AccountUID [2]uint64

// IsZero 未知账户
func (u AccountUID) IsZero() bool {
	return u[0] == 0 && u[1] == 0
}

// Hex 32 位大写十六进制
func (u AccountUID) Hex() string {
	return fmt.Sprintf("%016X%016X", u[0], u[1])
}

// ParseAccountUID 解析 32 位十六进制 UID
func ParseAccountUID(s string) (AccountUID, error) {
	s = trimHexPrefix(s)
	if len(s) != 32 {
		return AccountUID{}, fmt.Errorf("account uid 长度应为 32 位十六进制: %q", s)
	}
	hi, err := strconv.ParseUint(s[:16], 16, 64)
	if err != nil {
		return AccountUID{}, fmt.Errorf("account uid: %w", err)
	}
	lo, err := strconv.ParseUint(s[16:], 16, 64)
	if err != nil {
		return AccountUID{}, fmt.Errorf("account uid: %w", err)
	}
	return AccountUID{hi, lo}, nil
}

// trimHexPrefix 去掉首尾空白与 0x/0X 前缀
func trimHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// ParseAppID 解析十六进制应用标识（可带 0x 前缀）
func ParseAppID(s string) (uint64, error) {
	s = trimHexPrefix(s)
	if s == "" {
		return 0, fmt.Errorf("app id 为空")
	}
	return strconv.ParseUint(s, 16, 64)
}

// AccountIdentity 驱动当前会话的账户
type AccountIdentity struct {
	UID      AccountUID `json:"uid"`
	Nickname string     `json:"nickname"`
}

// IsZero 未解析到账户
func (a AccountIdentity) IsZero() bool {
	return a.UID.IsZero()
}

// NewAccount 构造账户，昵称超长时按字符边界截断到 MaxNicknameBytes
func NewAccount(uid AccountUID, nickname string) AccountIdentity {
	return AccountIdentity{UID: uid, Nickname: TruncateNickname(nickname)}
}

// TruncateNickname 截断到 MaxNicknameBytes 字节，不拆分多字节字符
func TruncateNickname(s string) string {
	if len(s) <= MaxNicknameBytes {
		return s
	}
	cut := MaxNicknameBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
