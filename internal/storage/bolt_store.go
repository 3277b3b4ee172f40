package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

var summaryBucket = []byte("summaries")

// boltEntry is the stored value: the record plus its expiry.
type boltEntry struct {
	ExpiresAt int64         `json:"expires_at"`
	Record    domain.Record `json:"record"`
}

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	recordTTL       time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt opens (or creates) the database at path and makes sure the summaries bucket exists.
func openBolt(path string, opts Options) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(summaryBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create %s bucket: %w", summaryBucket, err)
	}

	store := &boltStore{
		db:              db,
		recordTTL:       opts.RecordTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SaveSummary stores rec under its id, replacing an earlier record for the same url.
func (b *boltStore) SaveSummary(_ context.Context, rec domain.Record) error {
	if b == nil || b.db == nil {
		return nil
	}
	if rec.ID == "" {
		rec.ID = domain.RecordID(rec.URL)
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	raw, err := json.Marshal(boltEntry{ExpiresAt: now.Add(b.recordTTL).Unix(), Record: rec})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := summaries(tx)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rec.ID), raw)
	})
}

// Recent returns up to limit unexpired records ordered by creation time, newest first.
func (b *boltStore) Recent(_ context.Context, limit int) ([]domain.Record, error) {
	if b == nil || b.db == nil || limit <= 0 {
		return nil, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return nil, err
	}

	var out []domain.Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := summaries(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			entry, ok := decodeEntry(v)
			if !ok || !entry.liveAt(now) {
				return nil
			}
			out = append(out, entry.Record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(x, y domain.Record) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cleanupDue reports whether a sweep should run at now. Only one caller wins per interval.
func (b *boltStore) cleanupDue(now time.Time) bool {
	last := b.lastCleanup.Load()
	if now.Sub(time.Unix(last, 0)) < b.cleanupInterval {
		return false
	}
	return b.lastCleanup.CompareAndSwap(last, now.Unix())
}

// maybeCleanupExpired deletes expired and undecodable entries at most once per cleanup interval.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil || !b.cleanupDue(now) {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	var stale [][]byte
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := summaries(tx)
		if err != nil {
			return err
		}
		err = bucket.ForEach(func(k, v []byte) error {
			if entry, ok := decodeEntry(v); !ok || !entry.liveAt(now) {
				stale = append(stale, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cleanup expired summaries: %w", err)
	}
	return nil
}

func summaries(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket(summaryBucket)
	if bucket == nil {
		return nil, fmt.Errorf("bucket %s missing", summaryBucket)
	}
	return bucket, nil
}

func (e boltEntry) liveAt(now time.Time) bool {
	return time.Unix(e.ExpiresAt, 0).After(now)
}

func decodeEntry(value []byte) (boltEntry, bool) {
	var entry boltEntry
	if err := json.Unmarshal(value, &entry); err != nil || entry.ExpiresAt <= 0 {
		return boltEntry{}, false
	}
	return entry, true
}
