// Package testutil holds shared fixtures for snowdash tests: a fake ServiceNow
// instance and access to a disposable Redis database.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisProbeTimeout = 2 * time.Second
	redisLockTTL      = 30 * time.Minute
	redisLockPrefix   = "snowdash:testutil:db_lock:"
)

// redisCandidates is tried in order when REDIS_ADDR is unset: compose service name,
// local default, then the alternate port used when 6379 is taken locally.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// redisRequired makes a missing Redis fatal instead of a skip, for CI.
func redisRequired() bool {
	for _, key := range []string{"TEST_REQUIRE_REDIS", "TEST_REQUIRE_INFRA"} {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "y":
			return true
		}
	}
	return false
}

func pingRedis(addr string, db int) error {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), redisProbeTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

// GetTestRedisAddr returns the first reachable Redis address. REDIS_ADDR, when set,
// is the only address considered. The bool is false when nothing answered.
func GetTestRedisAddr(t testing.TB) (string, bool) {
	t.Helper()

	candidates := redisCandidates
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		candidates = []string{addr}
	}

	var lastErr error
	for _, addr := range candidates {
		if lastErr = pingRedis(addr, 0); lastErr == nil {
			return addr, true
		}
	}
	t.Logf("redis unavailable (tried %s): %v", strings.Join(candidates, ", "), lastErr)
	return candidates[len(candidates)-1], false
}

// SetupTestRedis returns a client on an empty database reserved for the calling test.
// The test is skipped when Redis is unreachable unless TEST_REQUIRE_REDIS is set.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	addr, ok := GetTestRedisAddr(t)
	if !ok {
		if redisRequired() {
			t.Fatalf("redis required but unavailable at %s", addr)
		}
		t.Skipf("redis unavailable at %s", addr)
	}

	db := testRedisDB(t, addr)
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), redisProbeTimeout)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis db %d: %v", db, err)
	}
	return client
}

// testRedisDB honours TEST_REDIS_DB, otherwise reserves one of DBs 1..15 with a
// SETNX lock in DB 0 so packages running in parallel do not flush each other.
func testRedisDB(t testing.TB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil && db >= 0 {
			return db
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())

	for db := 1; db <= 15; db++ {
		key := redisLockPrefix + strconv.Itoa(db)
		ctx, cancel := context.WithTimeout(context.Background(), redisProbeTimeout)
		won, err := meta.SetNX(ctx, key, owner, redisLockTTL).Result()
		cancel()
		if err != nil || !won {
			continue
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), redisProbeTimeout)
			defer cancel()
			_ = meta.Del(ctx, key).Err()
			_ = meta.Close()
		})
		return db
	}

	_ = meta.Close()
	t.Logf("no free redis db at %s, sharing db 1", addr)
	return 1
}
