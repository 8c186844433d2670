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

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 内存缓存存储实现
type MemoryStore struct {
	items map[string]cacheItem
	mu    sync.RWMutex
	now   func() time.Time
}

type cacheItem struct {
	value    string
	deadline time.Time // 零值表示不过期
}

// NewMemoryStore 创建新的内存缓存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]cacheItem),
		now:   time.Now,
	}
}

func (s *MemoryStore) expired(item cacheItem) bool {
	return !item.deadline.IsZero() && !s.now().Before(item.deadline)
}

// Get 获取缓存
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}
	if s.expired(item) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && s.expired(cur) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return "", ErrMiss
	}
	return item.value, nil
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	item := cacheItem{value: value}
	if ttl > 0 {
		item.deadline = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

// Delete 删除缓存
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Len 当前条目数（含未清理的过期项）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close 关闭缓存连接
func (s *MemoryStore) Close() error {
	return nil
}
