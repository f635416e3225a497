package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-cache/types"
	"github.com/saiset-co/sai-cache/utils"
)

type RedisConfig struct {
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
	KeyPrefix          string        `json:"key_prefix"`
}

// RedisBackend stores sonic-serialized entries under a key prefix.
// Entry expiry stays with the engine; redis never deletes on its own,
// so the tier's capacity accounting always sees every removal.
type RedisBackend struct {
	ctx    context.Context
	client *redis.Client
	config *RedisConfig
	logger types.Logger
}

func NewRedisBackend(ctx context.Context, config interface{}, logger types.Logger) (*RedisBackend, error) {
	redisConfig := &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		Password:           "",
		DB:                 0,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		KeyPrefix:          "sai-cache",
	}

	if config != nil {
		err := utils.UnmarshalConfig(config, redisConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis backend config")
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		MinIdleConns: redisConfig.MinIdleConnections,
		DialTimeout:  redisConfig.DialTimeout,
		ReadTimeout:  redisConfig.ReadTimeout,
		WriteTimeout: redisConfig.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConfig.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, types.WrapError(types.ErrBackendConnectionFailed, err.Error())
	}

	return &RedisBackend{
		ctx:    ctx,
		client: client,
		config: redisConfig,
		logger: logger,
	}, nil
}

func (r *RedisBackend) Get(key string) (*types.CacheEntry, bool) {
	data, err := r.client.Get(r.ctx, r.prefixed(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("Redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	entry, err := decodeEntry(data)
	if err != nil {
		r.logger.Warn("Failed to decode redis entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return entry, true
}

func (r *RedisBackend) Put(key string, entry *types.CacheEntry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return types.WrapError(err, "failed to encode redis entry")
	}

	// No redis expiry: the engine owns entry lifetimes, and a
	// server-side delete would bypass the tier's capacity accounting.
	return r.client.Set(r.ctx, r.prefixed(key), data, 0).Err()
}

func (r *RedisBackend) Remove(key string) bool {
	removed, err := r.client.Del(r.ctx, r.prefixed(key)).Result()
	if err != nil {
		r.logger.Warn("Redis delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return removed > 0
}

func (r *RedisBackend) Keys() []string {
	prefix := r.config.KeyPrefix + ":"
	var keys []string

	iter := r.client.Scan(r.ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(r.ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("Redis scan failed", zap.Error(err))
	}

	return keys
}

func (r *RedisBackend) Len() int {
	return len(r.Keys())
}

func (r *RedisBackend) Clear() error {
	keys := r.Keys()
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefixed(key)
	}

	return r.client.Del(r.ctx, prefixed...).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) prefixed(key string) string {
	return r.config.KeyPrefix + ":" + key
}
