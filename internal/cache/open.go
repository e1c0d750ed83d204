package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Options struct {
	Backend   string
	Key       string
	Path      string        // file backend
	RedisURL  string        // redis backend, redis://host:port/db
	Retention time.Duration // redis backend
	DSN       string        // postgres backend
	Table     string        // postgres backend
}

// Open builds the configured store. The returned closer releases any
// connections it opened and is never nil.
func Open(ctx context.Context, o Options) (Store, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(o.Backend)) {
	case "", BackendMemory:
		return &Memory{}, noop, nil
	case BackendFile:
		f, err := NewFile(o.Path)
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	case BackendRedis:
		opt, err := redis.ParseURL(o.RedisURL)
		if err != nil {
			return nil, noop, fmt.Errorf("cache: parse redis url: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("cache: ping redis: %w", err)
		}
		return NewRedis(client, o.Key, o.Retention), func() { client.Close() }, nil
	case BackendPostgres:
		pool, err := openPool(ctx, o.DSN)
		if err != nil {
			return nil, noop, err
		}
		pg := NewPostgres(pool, o.Key, o.Table)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return pg, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("cache: unknown backend %q", o.Backend)
	}
}

func openPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: parse postgres dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("cache: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cache: ping postgres: %w", err)
	}
	return pool, nil
}
