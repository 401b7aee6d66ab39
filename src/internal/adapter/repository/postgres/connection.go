package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/logger"
	_ "github.com/lib/pq"
)

const (
	defaultMaxOpenConns    = 30
	defaultMaxIdleConns    = 20
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultConnMaxLifetime = 15 * time.Minute
)

// PoolConfig sizes the connection pool. Every ledger operation holds one
// connection for the span of its row locks, so MaxOpenConns bounds how many
// movements can be in flight at once.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

func (p PoolConfig) withDefaults() PoolConfig {
	if p.MaxOpenConns <= 0 {
		p.MaxOpenConns = defaultMaxOpenConns
	}
	if p.MaxIdleConns <= 0 {
		p.MaxIdleConns = defaultMaxIdleConns
	}
	if p.MaxIdleConns > p.MaxOpenConns {
		p.MaxIdleConns = p.MaxOpenConns
	}
	return p
}

// Open connects to the ledger database, sizes the pool and verifies the
// server answers before returning.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	pool = pool.withDefaults()
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres ledger store connected", logger.Fields{
		"maxOpenConns": pool.MaxOpenConns,
		"maxIdleConns": pool.MaxIdleConns,
	})
	return db, nil
}
