package sqlitestore

import (
	"context"
	"fmt"
	"runtime"

	"github.com/api-sage/pin-ledger/src/internal/logger"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	username TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	pin_hash TEXT NOT NULL,
	balance TEXT NOT NULL DEFAULT '0',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	reference TEXT NOT NULL,
	username TEXT NOT NULL REFERENCES accounts(username),
	type TEXT NOT NULL,
	amount TEXT NOT NULL,
	balance TEXT NOT NULL,
	counterparty TEXT,
	note TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_username_created
	ON transactions (username, created_at DESC, id DESC);
`

type Config struct {
	// Path is the database file. It is created if missing.
	Path string

	// PoolSize defaults to max(runtime.NumCPU(), 4).
	PoolSize int
}

// Open creates the connection pool and applies the ledger schema on every
// connection as it is first used.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitestore: path is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 4 {
			poolSize = 4
		}
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite pool opened", logger.Fields{
		"path":     cfg.Path,
		"poolSize": poolSize,
	})

	return &Store{pool: pool, path: cfg.Path}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA cache_size=-8192",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitestore: %s: %w", pragma, err)
		}
	}

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlitestore: apply schema: %w", err)
	}
	return nil
}

func (s *Store) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: take: %w", err)
	}
	return conn, nil
}

func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		logger.Error("sqlite pool close failed", err, logger.Fields{"path": s.path})
		return fmt.Errorf("sqlitestore: closing %s: %w", s.path, err)
	}
	logger.Info("sqlite pool closed", logger.Fields{"path": s.path})
	return nil
}

func isConstraintViolation(err error) bool {
	switch sqlite.ErrCode(err) {
	case sqlite.ResultConstraintUnique, sqlite.ResultConstraintPrimaryKey:
		return true
	}
	return false
}
