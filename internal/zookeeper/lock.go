// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/lottery_locks" // 所有分布式锁的根节点
)

// ErrLockWaitTimeout 在 ctx 结束前没有拿到锁
var ErrLockWaitTimeout = errors.New("timeout waiting for lock")

// Connect 连接 ZooKeeper 集群，并等待会话建立
func Connect(ctx context.Context, servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	for {
		select {
		case ev := <-events:
			if ev.State == zk.StateHasSession {
				return conn, nil
			}
		case <-ctx.Done():
			conn.Close()
			return nil, fmt.Errorf("zookeeper session not established: %w", ctx.Err())
		}
	}
}

// DistributedLock 定义了一个分布式锁对象，一个实例对应一次加锁
type DistributedLock struct {
	conn     *zk.Conn // ZooKeeper连接
	path     string   // 锁的路径，例如 /lottery_locks/lottery:day:2025-06-25
	lockNode string   // 成功获取锁后，自己创建的节点路径
}

// NewDistributedLock 创建一个新的分布式锁实例，并确保锁路径存在
func NewDistributedLock(conn *zk.Conn, resourceID string) (*DistributedLock, error) {
	lockPath := lockRoot + "/" + strings.ReplaceAll(resourceID, "/", "_")
	for _, p := range []string{lockRoot, lockPath} {
		_, err := conn.Create(p, []byte(""), 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return nil, fmt.Errorf("failed to create lock path node %s: %w", p, err)
		}
	}
	return &DistributedLock{conn: conn, path: lockPath}, nil
}

// Lock 尝试获取锁，如果获取不到则阻塞等待，直到 ctx 结束
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 1. 在锁路径下创建一个临时顺序节点
	// 格式为: /lottery_locks/resourceID/lock-
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("failed to create sequential node: %w", err)
	}
	l.lockNode = nodePath
	myNodeName := strings.TrimPrefix(l.lockNode, l.path+"/")

	for {
		// 2. 获取锁路径下的所有子节点，按序号排序
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to get children nodes: %w", err)
		}
		sortBySequence(children)

		// 3. 判断自己是否是最小的节点
		idx := -1
		for i, child := range children {
			if child == myNodeName {
				idx = i
				break
			}
		}
		switch {
		case idx == 0:
			return nil
		case idx < 0:
			l.abandon()
			return errors.New("lock node disappeared, session may have expired")
		}

		// 4. 不是最小节点，只监听前一个节点
		prevNodePath := l.path + "/" + children[idx-1]
		exists, _, eventChan, err := l.conn.ExistsW(prevNodePath)
		if err != nil {
			l.abandon()
			return fmt.Errorf("failed to watch previous node: %w", err)
		}
		if !exists {
			continue
		}

		select {
		case <-eventChan:
			// 前一个节点变化，重新进入循环去竞争锁
		case <-ctx.Done():
			l.abandon()
			return ErrLockWaitTimeout
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}

// abandon 放弃排队，删除自己的节点
func (l *DistributedLock) abandon() {
	_ = l.Unlock()
}

// sortBySequence 按节点名末尾的 10 位序号排序。
// CreateProtectedEphemeralSequential 会加上随机前缀，不能直接按字符串排序。
func sortBySequence(children []string) {
	seq := func(name string) string {
		if len(name) < 10 {
			return name
		}
		return name[len(name)-10:]
	}
	sort.Slice(children, func(i, j int) bool {
		return seq(children[i]) < seq(children[j])
	})
}
