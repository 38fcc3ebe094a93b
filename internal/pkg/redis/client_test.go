package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRunScript(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewClientFrom(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	ctx := context.Background()

	if _, err := c.RunScript(ctx, "incr_by", []string{"k"}, 2); err == nil {
		t.Fatalf("expected error for an unregistered script")
	}
	if err := c.LoadScriptFromContent("", "return 1"); err == nil {
		t.Fatalf("expected error for an empty name")
	}

	if err := c.LoadScriptFromContent("incr_by", `return redis.call('incrby', KEYS[1], ARGV[1])`); err != nil {
		t.Fatalf("load script: %v", err)
	}
	for want := int64(2); want <= 4; want += 2 {
		res, err := c.RunScript(ctx, "incr_by", []string{"k"}, 2)
		if err != nil {
			t.Fatalf("run script: %v", err)
		}
		if res.(int64) != want {
			t.Fatalf("expected %d, got %v", want, res)
		}
	}
}

func TestNewClientFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.Close()

	addr := mr.Addr()
	mr.Close()
	if _, err := NewClient(context.Background(), addr, "", 0); err == nil {
		t.Fatalf("expected ping failure against a closed server")
	}
}
