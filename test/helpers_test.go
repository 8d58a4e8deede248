//go:build integration
// +build integration

package test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	bearauth "github.com/bearauth/bearauth"
)

func newIntegrationEngine(t *testing.T, mutate func(*bearauth.Config)) (*bearauth.Engine, redis.UniversalClient, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := bearauth.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := bearauth.New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	return engine, rdb, func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func enableRefresh(cfg *bearauth.Config) {
	cfg.Refresh.Enabled = true
	cfg.Refresh.MinRotationInterval = 0
}
