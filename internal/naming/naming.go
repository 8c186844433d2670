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

// Package naming 将任意显示名规整为安全的路径片段，并生成归档文件名
package naming

import (
	"fmt"
	"strings"
	"time"
)

// Fallback 规整后为空时使用的目录名
const Fallback = "unknown_game"

// TimestampLayout 归档文件名中的时间戳格式（精确到秒）
const TimestampLayout = "20060102_150405"

// Sanitize 替换 < > : " / \ | ? * 为 '_'，输出中不出现连续 '_'，去掉末尾空格与 '.'；
// 结果为空时返回 Fallback。纯函数且幂等。
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	var last byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			c = '_'
		}
		if c == '_' && last == '_' {
			continue
		}
		b.WriteByte(c)
		last = c
	}
	out := strings.TrimRight(b.String(), " .")
	if out == "" {
		return Fallback
	}
	return out
}

// HexID 64 位标识的定宽大写十六进制形式，如 0100000000001000
func HexID(id uint64) string {
	return fmt.Sprintf("%016X", id)
}

// FolderName 应用目录名：有显示名时用规整后的显示名，否则用 HexID
func FolderName(id uint64, displayName string) string {
	if displayName == "" {
		return HexID(id)
	}
	return Sanitize(displayName)
}

// UnknownUser 昵称为空时的用户目录名
const UnknownUser = "Unknown"

// UserFolderName 用户目录名：昵称规整后使用，空昵称为 UnknownUser
func UserFolderName(nickname string) string {
	if nickname == "" {
		return UnknownUser
	}
	return Sanitize(nickname)
}

// ArchiveFileName 归档文件名：<HEX16>_<YYYYMMDD_HHMMSS>.zip
func ArchiveFileName(id uint64, t time.Time) string {
	return HexID(id) + "_" + t.Format(TimestampLayout) + ".zip"
}
