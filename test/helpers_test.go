//go:build integration
// +build integration

package test

import (
	"fmt"
	"testing"
	"time"

	"github.com/Qonteh/fxauth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationStore(t *testing.T) (*store.RedisStore, *redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := store.NewRedisStore(rdb, "fx:")

	return st, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func makeRecord(subject, tokenID string, ttl time.Duration) *store.RefreshRecord {
	now := time.Now()

	return &store.RefreshRecord{
		TokenID:   tokenID,
		Subject:   subject,
		Material:  fmt.Sprintf("signed-token-material-%s", tokenID),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
