package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/adapter/events/kafka"
	"github.com/api-sage/pin-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/pin-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/pin-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/pin-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/pin-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/pin-ledger/src/internal/adapter/repository/sqlitestore"
	"github.com/api-sage/pin-ledger/src/internal/config"
	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/api-sage/pin-ledger/src/internal/logger"
	"github.com/api-sage/pin-ledger/src/internal/usecase/services"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

type options struct {
	addr        string
	driver      string
	envFile     string
	migrateOnly bool
}

type stores struct {
	accounts     domain.AccountRepository
	transactions domain.TransactionRepository
	ledger       domain.LedgerStore
	closers      []io.Closer
}

func main() {
	var opts options
	flagSet := pflag.NewFlagSet("pin-ledger", pflag.ContinueOnError)
	flagSet.StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	flagSet.StringVar(&opts.driver, "driver", "", "storage driver: postgres, sqlite or memory (overrides DATABASE_DRIVER)")
	flagSet.StringVar(&opts.envFile, "env-file", ".env", "optional file of KEY=value pairs loaded before the environment is read")
	flagSet.BoolVar(&opts.migrateOnly, "migrate-only", false, "apply postgres migrations and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Error("parse flags failed", err, nil)
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		logger.Error("server exited with error", err, nil)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return err
	}
	if opts.driver != "" {
		if err := os.Setenv("DATABASE_DRIVER", opts.driver); err != nil {
			return fmt.Errorf("apply --driver: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.addr != "" {
		cfg.HTTPAddr = opts.addr
	}
	logger.Configure(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, opts.migrateOnly)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range st.closers {
			_ = c.Close()
		}
	}()
	if opts.migrateOnly {
		logger.Info("migrations completed successfully", logger.Fields{"dir": cfg.MigrationsDir})
		return nil
	}

	var publisher domain.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("kafka publisher enabled", logger.Fields{
			"brokers": cfg.KafkaBrokers,
			"topic":   cfg.KafkaTopic,
		})
	}

	hasher := services.NewHasher(cfg.PinHashCost)
	userService := services.NewUserService(st.accounts, hasher)
	ledgerService := services.NewLedgerService(st.accounts, st.ledger, hasher, publisher, cfg.TxTimeout)
	queryService := services.NewQueryService(st.accounts, st.transactions)

	mux := router.New(
		controller.NewUserController(userService),
		controller.NewLedgerController(ledgerService),
		controller.NewQueryController(queryService),
		middleware.BasicAuth(userService),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", logger.Fields{
			"addr":   cfg.HTTPAddr,
			"driver": cfg.DatabaseDriver,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("http server shutting down", nil)
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Config, migrateOnly bool) (stores, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		db, err := postgres.Open(connectCtx, cfg.DatabaseDSN, postgres.PoolConfig{
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		})
		if err != nil {
			return stores{}, err
		}
		if err := postgres.RunMigrations(connectCtx, db, cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("run migrations: %w", err)
		}
		return postgresStores(db), nil

	case config.DriverSQLite:
		if migrateOnly {
			return stores{}, errors.New("--migrate-only requires the postgres driver")
		}
		store, err := sqlitestore.Open(sqlitestore.Config{
			Path:     cfg.SQLitePath,
			PoolSize: cfg.SQLitePoolSize,
		})
		if err != nil {
			return stores{}, err
		}
		return stores{accounts: store, transactions: store, ledger: store, closers: []io.Closer{store}}, nil

	default:
		if migrateOnly {
			return stores{}, errors.New("--migrate-only requires the postgres driver")
		}
		logger.Info("using in-memory store; data is lost on exit", nil)
		store := memory.NewStore()
		return stores{accounts: store, transactions: store, ledger: store}, nil
	}
}

func postgresStores(db *sql.DB) stores {
	return stores{
		accounts:     postgres.NewAccountRepository(db),
		transactions: postgres.NewTransactionRepository(db),
		ledger:       postgres.NewLedgerStore(db),
		closers:      []io.Closer{db},
	}
}
