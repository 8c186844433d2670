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
	"log/slog"
	"time"

	"autoback/internal/storage/cache"
)

const titleKeyPrefix = "title:"

// CachedResolver 装饰任意 Resolver，缓存非空的 DisplayName 结果
type CachedResolver struct {
	Resolver
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedResolver logger 可为 nil
func NewCachedResolver(inner Resolver, store cache.Store, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedResolver{Resolver: inner, store: store, ttl: ttl, logger: logger}
}

// DisplayName 先查缓存；缓存故障只记录日志并回源
func (r *CachedResolver) DisplayName(ctx context.Context, app ApplicationIdentity) (string, error) {
	if app.DisplayName != "" {
		return app.DisplayName, nil
	}
	key := titleKeyPrefix + app.Hex()
	name, err := r.store.Get(ctx, key)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		r.logger.Warn("名称缓存读取失败", "key", key, "error", err)
	}
	name, err = r.Resolver.DisplayName(ctx, app)
	if err != nil || name == "" {
		return name, err
	}
	if err := r.store.Set(ctx, key, name, r.ttl); err != nil {
		r.logger.Warn("名称缓存写入失败", "key", key, "error", err)
	}
	return name, nil
}

// Accounts 内层实现 Directory 时透传，否则返回空列表
func (r *CachedResolver) Accounts(ctx context.Context) ([]AccountIdentity, error) {
	if d, ok := r.Resolver.(Directory); ok {
		return d.Accounts(ctx)
	}
	return nil, nil
}
