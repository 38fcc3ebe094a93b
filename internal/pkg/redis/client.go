// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client 包装 go-redis 客户端，并维护按名字注册的 Lua 脚本。
type Client struct {
	rdb redis.UniversalClient

	mu      sync.RWMutex
	scripts map[string]*redis.Script
}

// NewClient 连接 Redis 并立即 PING 一次，地址不可达时尽早失败。
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewClientFrom(rdb), nil
}

// NewClientFrom 使用已有的 go-redis 客户端 (集群、哨兵或测试用的 miniredis)。
func NewClientFrom(rdb redis.UniversalClient) *Client {
	return &Client{rdb: rdb, scripts: make(map[string]*redis.Script)}
}

// LoadScriptFromContent 注册脚本。同名脚本会被覆盖。
func (c *Client) LoadScriptFromContent(name, content string) error {
	if name == "" || content == "" {
		return fmt.Errorf("script name and content must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[name] = redis.NewScript(content)
	return nil
}

// RunScript 执行已注册的脚本。优先 EVALSHA，服务端没有缓存时自动退回 EVAL。
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.mu.RLock()
	script, ok := c.scripts[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("redis script %q is not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// GetClient 返回底层客户端，用于脚本之外的普通命令。
func (c *Client) GetClient() redis.UniversalClient {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
