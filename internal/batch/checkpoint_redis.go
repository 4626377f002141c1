package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCheckpoint Redis 断点存储，单个键保存整份进度
type RedisCheckpoint struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration // 0 表示不过期
}

// NewRedisCheckpoint 创建 Redis 断点存储
func NewRedisCheckpoint(client redis.UniversalClient, key string, ttl time.Duration) *RedisCheckpoint {
	return &RedisCheckpoint{client: client, key: key, ttl: ttl}
}

// Load 读取断点
func (c *RedisCheckpoint) Load(ctx context.Context) (*Progress, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Progress{}, nil
		}
		return nil, fmt.Errorf("读取 Redis 断点失败: %w", err)
	}
	return decodeProgress(data)
}

// Save 写入断点
func (c *RedisCheckpoint) Save(ctx context.Context, progress *Progress) error {
	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("序列化断点失败: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入 Redis 断点失败: %w", err)
	}
	return nil
}

// Clear 删除断点
func (c *RedisCheckpoint) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("删除 Redis 断点失败: %w", err)
	}
	return nil
}
