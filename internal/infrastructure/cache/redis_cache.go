package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// ErrCacheMiss はキーが存在しないことを示す
var ErrCacheMiss = errors.New("cache miss")

// RedisConfig はRedis接続設定
type RedisConfig struct {
	Addrs    []string
	Password string
}

// RedisCache はrueidisによるTTL付きキーバリューキャッシュ
type RedisCache struct {
	client rueidis.Client
}

// NewRedisCache は新しいRedisCacheを作成
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("redis addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}
	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient は既存のクライアントからRedisCacheを作成
func NewRedisCacheWithClient(client rueidis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get はキーの値を取得する。存在しなければ ErrCacheMiss。
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.B().Get().Key(key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// Set は有効期限付きで値を保存する
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := c.client.B().Set().Key(key).Value(string(value)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping は接続を確認する
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Do(ctx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close はクライアントを閉じる
func (c *RedisCache) Close() {
	c.client.Close()
}
