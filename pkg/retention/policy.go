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
	"time"
)

// Policy 每个应用目录的归档留存策略
type Policy struct {
	Enable     bool
	KeepPerApp int // 每个应用目录最多保留的归档数（0=不限）
	MaxAgeDays int // 最长保留天数（0=永久）
}

// DefaultPolicy 默认不清理
func DefaultPolicy() Policy {
	return Policy{Enable: false}
}

// Active 策略是否会删除任何文件
func (p Policy) Active() bool {
	return p.Enable && (p.KeepPerApp > 0 || p.MaxAgeDays > 0)
}

// Expired 判断 modTime 的归档在 now 时是否超过 MaxAgeDays
func (p Policy) Expired(modTime, now time.Time) bool {
	if p.MaxAgeDays <= 0 {
		return false // 永久保留
	}
	return now.After(modTime.AddDate(0, 0, p.MaxAgeDays))
}
