package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

// Runs only against a live server, e.g. REDIS_TEST_ADDR=localhost:6379.
func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	raw, err := NewStore(TypeRedis, Options{RedisAddr: addr, RedisDB: 15, RecordTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewStore redis: %v", err)
	}
	store := raw.(*redisStore)
	store.prefix = "digest-test:" + t.Name()
	defer store.Close()

	ctx := context.Background()
	defer store.rdb.Del(ctx, store.indexKey(), store.recordKey(record("https://a", time.Now()).ID), store.recordKey(record("https://b", time.Now()).ID))

	base := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.SaveSummary(ctx, record("https://a", base)); err != nil {
		t.Fatalf("SaveSummary a: %v", err)
	}
	if err := store.SaveSummary(ctx, record("https://b", base.Add(time.Second))); err != nil {
		t.Fatalf("SaveSummary b: %v", err)
	}

	got, err := store.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].URL != "https://b" || got[1].URL != "https://a" {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestRedisStoreRecentSkipsExpiredRecords(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	raw, err := NewStore(TypeRedis, Options{RedisAddr: addr, RedisDB: 15, RecordTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewStore redis: %v", err)
	}
	store := raw.(*redisStore)
	store.prefix = "digest-test:" + t.Name()
	defer store.Close()

	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)
	urls := []string{"https://old", "https://mid", "https://new"}
	for i, u := range urls {
		if err := store.SaveSummary(ctx, record(u, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("SaveSummary %s: %v", u, err)
		}
	}
	defer store.rdb.Del(ctx, store.indexKey(), store.recordKey(record("https://old", base).ID))

	// The two newest records expire while their ids are still indexed.
	store.rdb.Del(ctx, store.recordKey(record("https://mid", base).ID), store.recordKey(record("https://new", base).ID))

	got, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://old" {
		t.Fatalf("expected the live record, got %+v", got)
	}
	if n := store.rdb.ZCard(ctx, store.indexKey()).Val(); n != 1 {
		t.Fatalf("expected expired ids pruned from the index, %d left", n)
	}
}
