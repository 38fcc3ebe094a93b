package adapter

import (
	"context"
	"time"

	"promo-lottery/internal/service/lottery/domain/port"
)

// WaitTimeoutLocker 给任意 port.Locker 的等待时间加上上限
type WaitTimeoutLocker struct {
	inner   port.Locker
	timeout time.Duration
}

// WithWaitTimeout timeout <= 0 时原样返回 inner
func WithWaitTimeout(inner port.Locker, timeout time.Duration) port.Locker {
	if timeout <= 0 {
		return inner
	}
	return &WaitTimeoutLocker{inner: inner, timeout: timeout}
}

func (l *WaitTimeoutLocker) Acquire(ctx context.Context, key string) (port.Unlock, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.inner.Acquire(ctx, key)
}
