// Package lock 提供按期间互斥的计划生成锁
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/laborplan/laborplan/internal/config"
	"github.com/laborplan/laborplan/pkg/errors"
	"github.com/laborplan/laborplan/pkg/logger"
)

// keyPrefix 锁键前缀
const keyPrefix = "laborplan:plan-lock:"

// Release 释放锁
type Release func()

// Locker 期间锁
type Locker interface {
	// Acquire 获取 key 的锁，已被占用时返回 PLAN_IN_PROGRESS
	Acquire(ctx context.Context, key string) (Release, error)
}

// releaseScript 令牌一致时才删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 Redis SETNX 的分布式锁
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient 根据配置创建 Redis 客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewRedisLocker 创建 Redis 锁，ttl 为锁的最长持有时间
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

// Acquire 获取锁
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, fmt.Sprintf("获取计划锁失败: %s", key))
	}
	if !ok {
		return nil, errors.PlanInProgress(key)
	}

	return func() {
		// 调用方的 ctx 可能已取消，释放使用独立的超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			logger.WithError(err).Str("key", redisKey).Msg("释放计划锁失败")
		}
	}, nil
}

// Ping 检查 Redis 连接
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// LocalLocker 进程内锁，单实例部署时使用
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire 获取锁
func (l *LocalLocker) Acquire(_ context.Context, key string) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return nil, errors.PlanInProgress(key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
