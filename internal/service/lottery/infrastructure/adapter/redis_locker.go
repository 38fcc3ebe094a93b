package adapter

import (
	"context"
	"time"

	"promo-lottery/internal/pkg/redis"
	"promo-lottery/internal/service/lottery/domain/port"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	unlockScriptName = "lottery_unlock"

	defaultLockTTL      = 10 * time.Second
	defaultPollInterval = 20 * time.Millisecond
)

// RedisLocker 是 port.Locker 的 Redis 实现: SET NX PX 加随机 token，
// 释放时用 Lua 脚本比较 token 后删除，不会误删别人的锁。
type RedisLocker struct {
	redisClient  *redis.Client
	ttl          time.Duration
	pollInterval time.Duration
}

// NewRedisLocker 创建锁适配器并加载释放脚本。ttl 必须大于一次抽奖的最长耗时。
func NewRedisLocker(redisClient *redis.Client, ttl time.Duration) (*RedisLocker, error) {
	if err := redisClient.LoadScriptFromContent(unlockScriptName, unlockScript); err != nil {
		return nil, errors.Wrap(err, "failed to load unlock script")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{
		redisClient:  redisClient,
		ttl:          ttl,
		pollInterval: defaultPollInterval,
	}, nil
}

// Acquire 轮询 SET NX 直到成功，或 ctx 结束
func (l *RedisLocker) Acquire(ctx context.Context, key string) (port.Unlock, error) {
	token := uuid.NewString()
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.redisClient.GetClient().SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(port.ErrLockTimeout, key)
			}
			return nil, errors.Wrapf(err, "redis lock %s", key)
		}
		if ok {
			return l.unlockFunc(key, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(port.ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlockFunc(key, token string) port.Unlock {
	return func(ctx context.Context) error {
		res, err := l.redisClient.RunScript(ctx, unlockScriptName, []string{key}, token)
		if err != nil {
			return errors.Wrapf(err, "redis unlock %s", key)
		}
		if n, ok := res.(int64); !ok || n != 1 {
			return errors.Errorf("redis lock %s expired before release", key)
		}
		return nil
	}
}

var unlockScript = `
-- KEYS[1]: 锁的 Key, 例如: lottery:day:2025-06-25
-- ARGV[1]: 加锁时写入的 token

-- 只有持有者本人才能删除
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
end
return 0
`
