package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

const redisPingTimeout = 3 * time.Second

// redisStore keeps each record as a JSON string key with a TTL and indexes ids
// in a sorted set scored by creation time.
type redisStore struct {
	rdb       *redis.Client
	recordTTL time.Duration
	prefix    string
	now       func() time.Time
}

func openRedis(opts Options) (Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisStore(rdb, opts.RecordTTL), nil
}

func newRedisStore(rdb *redis.Client, ttl time.Duration) *redisStore {
	return &redisStore{rdb: rdb, recordTTL: ttl, prefix: redisKeyPrefix, now: time.Now}
}

func (r *redisStore) indexKey() string           { return r.prefix + ":index" }
func (r *redisStore) recordKey(id string) string { return r.prefix + ":record:" + id }

// Close releases the redis connection pool.
func (r *redisStore) Close() error {
	if r == nil || r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

// SaveSummary writes the record and refreshes its position in the index.
func (r *redisStore) SaveSummary(ctx context.Context, rec domain.Record) error {
	if rec.ID == "" {
		rec.ID = domain.RecordID(rec.URL)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	now := r.now()
	cutoff := now.Add(-r.recordTTL).UnixMilli()

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(rec.ID), raw, r.recordTTL)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: rec.ID})
		pipe.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("(%d", cutoff))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save summary: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. Index entries older than the TTL are
// pruned first; ids whose record key has already expired are dropped from the index as they
// are met, and the scan moves on to older ids until limit live records are found.
func (r *redisStore) Recent(ctx context.Context, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		return nil, nil
	}

	cutoff := r.now().Add(-r.recordTTL).UnixMilli()
	if err := r.rdb.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
		return nil, fmt.Errorf("redis prune index: %w", err)
	}

	out := make([]domain.Record, 0, limit)
	var start int64
	for len(out) < limit {
		page := int64(limit - len(out))
		ids, err := r.rdb.ZRevRange(ctx, r.indexKey(), start, start+page-1).Result()
		if err != nil {
			return nil, fmt.Errorf("redis read index: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		recs, stale, err := r.load(ctx, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)

		if len(stale) > 0 {
			if err := r.rdb.ZRem(ctx, r.indexKey(), stale...).Err(); err != nil {
				return nil, fmt.Errorf("redis prune index: %w", err)
			}
		}
		// Removed ids shift the ranking up, so only the surviving ones advance the cursor.
		start += int64(len(ids) - len(stale))
		if int64(len(ids)) < page {
			break
		}
	}
	return out, nil
}

// load fetches the records for ids in order. Ids without a live record are returned as stale.
func (r *redisStore) load(ctx context.Context, ids []string) ([]domain.Record, []any, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, nil, fmt.Errorf("redis read records: %w", err)
	}

	var recs []domain.Record
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, stale, nil
}
