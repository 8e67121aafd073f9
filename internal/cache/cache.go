// Package cache содержит кэш ответов публичного отслеживания на Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss возвращается, если ключ отсутствует в кэше.
	ErrCacheMiss = errors.New("cache miss")
	// ErrStale возвращается, если ключ был сброшен после чтения версии.
	ErrStale = errors.New("cache entry is stale")
)

const (
	keyPrefix     = "coletas:tracking:"
	versionPrefix = "coletas:tracking-version:"

	minVersionTTL = 24 * time.Hour
)

// RedisCache хранит сериализованные ответы отслеживания с ограниченным сроком жизни.
// У каждого ключа есть версия, которая растёт при каждом сбросе; запись принимается
// только для той версии, что была прочитана до обращения к базе.
type RedisCache struct {
	client     *redis.Client
	ttl        time.Duration
	versionTTL time.Duration
}

// NewRedisCache создаёт кэш по URL вида redis://[:password@]host[:port][/database].
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	versionTTL := minVersionTTL
	if ttl > versionTTL {
		versionTTL = ttl
	}

	return &RedisCache{
		client:     redis.NewClient(opts),
		ttl:        ttl,
		versionTTL: versionTTL,
	}, nil
}

// Get возвращает значение по ключу либо ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return val, nil
}

// Version возвращает текущую версию ключа. У ни разу не сброшенного ключа версия 0.
func (c *RedisCache) Version(ctx context.Context, key string) (int64, error) {
	v, err := c.client.Get(ctx, versionPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get version %s: %w", key, err)
	}
	return v, nil
}

// SetIfVersion сохраняет значение, если версия ключа всё ещё равна version.
// Иначе возвращает ErrStale и ничего не пишет.
func (c *RedisCache) SetIfVersion(ctx context.Context, key string, version int64, value []byte) error {
	if key == "" {
		return nil
	}
	vkey := versionPrefix + key

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ErrStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, keyPrefix+key, value, c.ttl)
			return nil
		})
		return err
	}, vkey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	}
	return fmt.Errorf("set %s: %w", key, err)
}

// Delete удаляет перечисленные ключи и повышает их версии.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	pipe := c.client.TxPipeline()
	n := 0
	for _, key := range keys {
		if key == "" {
			continue
		}
		pipe.Del(ctx, keyPrefix+key)
		pipe.Incr(ctx, versionPrefix+key)
		pipe.Expire(ctx, versionPrefix+key, c.versionTTL)
		n++
	}
	if n == 0 {
		return nil
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %v: %w", keys, err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
