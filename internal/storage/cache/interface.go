package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 键不存在或已过期
var ErrMiss = errors.New("cache: miss")

// Store 字符串键值缓存；身份解析用它缓存应用显示名
type Store interface {
	// Get 读取缓存值，未命中返回 ErrMiss
	Get(ctx context.Context, key string) (string, error)
	// Set 写入缓存，ttl<=0 表示不过期
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Delete 删除缓存，键不存在不报错
	Delete(ctx context.Context, key string) error
	// Close 关闭缓存连接
	Close() error
}
