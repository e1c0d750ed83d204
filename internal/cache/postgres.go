package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DefaultTable holds one row per cache key.
const DefaultTable = "price_cache"

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres keeps the slot as a JSONB row keyed by the cache key.
type Postgres struct {
	db    Querier
	key   string
	table string
}

func NewPostgres(db Querier, key, table string) *Postgres {
	if key == "" {
		key = DefaultKey
	}
	if table == "" {
		table = DefaultTable
	}
	return &Postgres{db: db, key: key, table: pgx.Identifier{table}.Sanitize()}
}

// Migrate creates the backing table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("cache: migrate %s: %w", p.table, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context) ([]byte, error) {
	var b []byte
	err := p.db.QueryRow(ctx, `SELECT value FROM `+p.table+` WHERE key = $1`, p.key).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: postgres get: %w", err)
	}
	return b, nil
}

func (p *Postgres) Set(ctx context.Context, value []byte) error {
	_, err := p.db.Exec(ctx, `INSERT INTO `+p.table+` (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, p.key, value)
	if err != nil {
		return fmt.Errorf("cache: postgres set: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, `DELETE FROM `+p.table+` WHERE key = $1`, p.key); err != nil {
		return fmt.Errorf("cache: postgres delete: %w", err)
	}
	return nil
}
