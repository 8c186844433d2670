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
	"errors"
	"io/fs"
	"os"
	"sync"
)

// Staging 构建好的临时归档文件，归属单个归档任务。
// 必须在 Streamer 读完（或故障）之后才能 Release。
type Staging struct {
	path     string
	file     *os.File
	size     int64
	checksum string
	manifest Manifest

	once     sync.Once
	released bool
	err      error
	mu       sync.Mutex
}

// Path 临时文件路径
func (s *Staging) Path() string { return s.path }

// Size 临时归档字节数
func (s *Staging) Size() int64 { return s.size }

// Checksum 临时归档整体的 BLAKE3，用于校验流式写入结果
func (s *Staging) Checksum() string { return s.checksum }

// Manifest 写入归档的清单
func (s *Staging) Manifest() Manifest { return s.manifest }

// Source 从文件开头读取的 Source
func (s *Staging) Source() Source {
	return ReaderSource(s.file)
}

// Release 关闭并删除临时文件；可重复调用，只执行一次
func (s *Staging) Release() error {
	s.once.Do(func() {
		cerr := s.file.Close()
		rerr := os.Remove(s.path)
		if errors.Is(rerr, fs.ErrNotExist) {
			rerr = nil
		}
		s.err = errors.Join(cerr, rerr)
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()
	})
	return s.err
}

// Released 是否已释放
func (s *Staging) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
