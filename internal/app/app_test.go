package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"cab/internal/config"
)

func TestKeyspace(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name string
		cmd  redis.Cmder
		want string
	}{
		{"booking lock", redis.NewStatusCmd(ctx, "set", "lock:booking:b-1", "token"), "lock"},
		{"booking cache", redis.NewStringCmd(ctx, "get", "cache:booking:b-1"), "cache"},
		{"no prefix", redis.NewStringCmd(ctx, "get", "plain"), "redis"},
		{"no key", redis.NewStatusCmd(ctx, "ping"), "redis"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := keyspace(tc.cmd); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCorsConfig(t *testing.T) {
	if cfg := corsConfig(nil); !cfg.AllowAllOrigins {
		t.Error("expected all origins to be allowed when none are configured")
	}
	if cfg := corsConfig([]string{"*"}); !cfg.AllowAllOrigins {
		t.Error("expected wildcard to allow all origins")
	}

	cfg := corsConfig([]string{"https://megacitycab.lk"})
	if cfg.AllowAllOrigins {
		t.Error("expected explicit origins only")
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "https://megacitycab.lk" {
		t.Errorf("unexpected origins %v", cfg.AllowOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid cors config, got %v", err)
	}
}

func TestNewQueueRedisOpt_UsesQueueDatabase(t *testing.T) {
	opt := NewQueueRedisOpt(
		config.RedisConfig{Addr: "redis:6379", Password: "secret", DB: 0},
		config.QueueConfig{RedisDB: 1},
	)
	if opt.Addr != "redis:6379" || opt.Password != "secret" || opt.DB != 1 {
		t.Errorf("unexpected redis options %+v", opt)
	}
}
