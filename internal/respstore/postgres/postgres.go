// Package postgres persists survey responses in PostgreSQL for shared
// deployments where several QC hosts work one response pool. It speaks
// the same contract as the sqlite backend; conditional updates rely on
// row-level atomicity instead of file locking.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"opine/internal/config"
)

// Store manages response persistence backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the configured database and ensures the schema exists.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg.Store.PostgresDSN == "" {
		return nil, errors.New("postgres backend requires store.postgres_dsn")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Store.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Store.PostgresMaxConns)
	poolConfig.MinConns = int32(cfg.Store.PostgresMinConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool and releases all resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping verifies the database connection is usable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("response database connection unavailable")
	}
	return s.pool.Ping(ctx)
}

// placeholderRange renders "$start,$start+1,..." for count placeholders.
func placeholderRange(start, count int) string {
	if count <= 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < count; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}
