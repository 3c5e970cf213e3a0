package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

type RedisKeyValue struct {
	client *redis.Client
}

// NewRedisKeyValue accepts either a redis:// URL or a plain host:port address.
func NewRedisKeyValue(connectionString string) (*RedisKeyValue, error) {
	var options *redis.Options
	if strings.Contains(connectionString, "://") {
		parsed, err := redis.ParseURL(connectionString)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		options = parsed
	} else {
		options = &redis.Options{Addr: connectionString}
	}
	return &RedisKeyValue{client: redis.NewClient(options)}, nil
}

func (r *RedisKeyValue) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisKeyValue) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKeyValue) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisKeyValue) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisKeyValue) Close() error {
	return r.client.Close()
}
