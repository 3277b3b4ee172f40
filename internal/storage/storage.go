package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// Package storage keeps produced summary records for later listing.

// Store persists summary records.
type Store interface {
	Close() error
	SaveSummary(ctx context.Context, rec domain.Record) error
	// Recent returns up to limit unexpired records, newest first.
	Recent(ctx context.Context, limit int) ([]domain.Record, error)
}

// Supported backends.
const (
	TypeNone  = "none"
	TypeBbolt = "bbolt"
	TypeRedis = "redis"
)

// Options controls backend location and retention.
type Options struct {
	Path            string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
	redisKeyPrefix         = "digest:summaries"
)

// NewStore creates the configured storage backend.
func NewStore(typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeBbolt:
		if opts.Path == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(opts.Path, opts)
	case TypeRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis storage requires an address")
		}
		return openRedis(opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	opts.Path = strings.TrimSpace(opts.Path)
	opts.RedisAddr = strings.TrimSpace(opts.RedisAddr)
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                                         { return nil }
func (noopStore) SaveSummary(context.Context, domain.Record) error     { return nil }
func (noopStore) Recent(context.Context, int) ([]domain.Record, error) { return nil, nil }
