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

package history

import (
	"context"
	"sync"
)

// MemoryStore 定长环形缓冲，满后覆盖最旧记录
type MemoryStore struct {
	mu    sync.RWMutex
	buf   []JobRecord
	next  int
	count int
}

// NewMemoryStore capacity<=0 时使用 DefaultCapacity
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{buf: make([]JobRecord, capacity)}
}

func (s *MemoryStore) Record(ctx context.Context, rec JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = rec
	s.next = (s.next + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, f Filter) ([]JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobRecord, 0, s.count)
	for i := 1; i <= s.count; i++ {
		rec := s.buf[(s.next-i+len(s.buf))%len(s.buf)]
		if !f.match(rec) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

// Len 当前记录数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *MemoryStore) Close() error { return nil }
