package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=ledger_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultSQLitePath = "ledger.db"
const defaultHTTPAddr = ":8080"
const defaultKafkaTopic = "ledger.transactions"
const defaultTxTimeout = 5 * time.Second

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type Config struct {
	DatabaseDriver string
	DatabaseDSN    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	MigrationsDir  string
	SQLitePath     string
	SQLitePoolSize int
	HTTPAddr       string
	PinHashCost    int
	KafkaBrokers   []string
	KafkaTopic     string
	LogLevel       string
	TxTimeout      time.Duration
}

// LoadEnvFile loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

func Load() (Config, error) {
	driver := strings.ToLower(envOr("DATABASE_DRIVER", DriverSQLite))
	switch driver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return Config{}, fmt.Errorf("DATABASE_DRIVER must be one of postgres, sqlite, memory")
	}

	poolSize, err := envInt("SQLITE_POOL_SIZE", 0)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := envInt("DATABASE_MAX_OPEN_CONNS", 0)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := envInt("DATABASE_MAX_IDLE_CONNS", 0)
	if err != nil {
		return Config{}, err
	}

	pinCost, err := envInt("PIN_HASH_COST", bcrypt.DefaultCost)
	if err != nil {
		return Config{}, err
	}
	if pinCost < bcrypt.MinCost || pinCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("PIN_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	txTimeout := defaultTxTimeout
	if raw := strings.TrimSpace(os.Getenv("TX_TIMEOUT")); raw != "" {
		txTimeout, err = time.ParseDuration(raw)
		if err != nil || txTimeout <= 0 {
			return Config{}, fmt.Errorf("TX_TIMEOUT must be a positive duration")
		}
	}

	return Config{
		DatabaseDriver: driver,
		DatabaseDSN:    normalizeConnectionString(envOr("DATABASE_DSN", defaultConnectionString)),
		DBMaxOpenConns: maxOpen,
		DBMaxIdleConns: maxIdle,
		MigrationsDir:  envOr("MIGRATIONS_DIR", filepath.Join("src", "migrations")),
		SQLitePath:     envOr("SQLITE_PATH", defaultSQLitePath),
		SQLitePoolSize: poolSize,
		HTTPAddr:       envOr("HTTP_ADDR", defaultHTTPAddr),
		PinHashCost:    pinCost,
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     envOr("KAFKA_TOPIC", defaultKafkaTopic),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		TxTimeout:      txTimeout,
	}, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return value, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
