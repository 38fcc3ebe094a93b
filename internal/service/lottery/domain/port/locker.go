package port

import (
	"context"
	"errors"
)

// ErrLockTimeout 在等待锁超时时返回。
var ErrLockTimeout = errors.New("timeout waiting for lock")

// Unlock 释放已获取的锁。
type Unlock func(ctx context.Context) error

// Locker 是互斥锁的出站端口，由本地信号量、Redis 或 ZooKeeper 实现。
// 同一个 key 同一时刻只能被一个持有者获取。
type Locker interface {
	// Acquire 阻塞直到获取 key 对应的锁，或 ctx 结束。
	Acquire(ctx context.Context, key string) (Unlock, error)
}
