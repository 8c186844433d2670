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

package archive

import (
	"os"
)

// Handle 目标文件句柄
type Handle interface {
	Write(p []byte) (int, error)
	// Sync 强制落盘
	Sync() error
	Close() error
}

// Volume 输出卷：以创建+写入+追加方式打开目标
type Volume interface {
	OpenAppend(path string) (Handle, error)
}

// OSVolume 本地文件系统
type OSVolume struct{}

// OpenAppend 目标已存在时在末尾追加
func (OSVolume) OpenAppend(path string) (Handle, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
