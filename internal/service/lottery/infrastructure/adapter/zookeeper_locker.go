package adapter

import (
	"context"
	"errors"

	"promo-lottery/internal/service/lottery/domain/port"
	"promo-lottery/internal/zookeeper"

	"github.com/go-zookeeper/zk"
	pkgerrors "github.com/pkg/errors"
)

// ZookeeperLocker 是 port.Locker 的 ZooKeeper 实现，使用临时顺序节点排队。
// 持有者会话断开时节点自动删除，锁不会永久悬挂。
type ZookeeperLocker struct {
	conn *zk.Conn
}

func NewZookeeperLocker(conn *zk.Conn) *ZookeeperLocker {
	return &ZookeeperLocker{conn: conn}
}

func (l *ZookeeperLocker) Acquire(ctx context.Context, key string) (port.Unlock, error) {
	lock, err := zookeeper.NewDistributedLock(l.conn, key)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		if errors.Is(err, zookeeper.ErrLockWaitTimeout) {
			return nil, pkgerrors.Wrap(port.ErrLockTimeout, key)
		}
		return nil, pkgerrors.Wrapf(err, "zookeeper lock %s", key)
	}
	return func(context.Context) error {
		return lock.Unlock()
	}, nil
}
