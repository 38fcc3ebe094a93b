package adapter

import (
	"context"
	"sync"

	"promo-lottery/internal/service/lottery/domain/port"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
)

// LocalLocker 是单实例部署下的 port.Locker 实现。
// 每个 key 对应一个容量为 1 的信号量，没有等待者时回收。
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyedLock)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (port.Unlock, error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyedLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	if err := kl.sem.Acquire(ctx, 1); err != nil {
		l.deref(key, kl)
		return nil, errors.Wrap(port.ErrLockTimeout, key)
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			kl.sem.Release(1)
			l.deref(key, kl)
		})
		return nil
	}, nil
}

func (l *LocalLocker) deref(key string, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size 返回当前仍被引用的 key 数量
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
