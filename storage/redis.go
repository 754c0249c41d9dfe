package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/kataras/golog"
)

// Redis is nil when REDIS_URL is not configured; every helper below
// degrades to a cache miss in that case.
var Redis *redis.Client

func InitializeRedis(addr, password string) {
	if addr == "" {
		golog.Warn("REDIS_URL not set, caching and refresh tokens are disabled")
		return
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	golog.Infof("redis initialized with address: %s", addr)
}

func GetCached(ctx context.Context, key string, dest interface{}) (bool, error) {
	if Redis == nil {
		return false, nil
	}
	data, err := Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(data), dest)
}

func SetCached(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if Redis == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(ctx, key, data, ttl).Err()
}

// InvalidatePrefix drops every cached key under prefix.
func InvalidatePrefix(ctx context.Context, prefix string) error {
	if Redis == nil {
		return nil
	}
	iter := Redis.Scan(ctx, 0, prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := Redis.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// TryLock takes a short-lived lock. Without Redis it always succeeds.
func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if Redis == nil {
		return true, nil
	}
	return Redis.SetNX(ctx, "lock:"+key, "1", ttl).Result()
}

func Unlock(ctx context.Context, key string) {
	if Redis == nil {
		return
	}
	Redis.Del(ctx, "lock:"+key)
}

func GenerateQueryCacheKey(prefix string, queryParams map[string]string) string {
	keys := make([]string, 0, len(queryParams))
	for k := range queryParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for i, k := range keys {
		if i > 0 {
			builder.WriteString(":")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(queryParams[k])
	}

	hash := md5.Sum([]byte(builder.String()))
	return prefix + ":" + hex.EncodeToString(hash[:])
}
