package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/KotFed0t/stocks_tracker_bot/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

const (
	pgConnAttempts   = 10
	pgRetryDelay     = time.Second
	pgConnectTimeout = 5 * time.Second
)

// PostgresDSN собирает url подключения, пароль экранируется
func PostgresDSN(cfg config.Postgres) string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     cfg.DbName,
		RawQuery: "sslmode=disable",
	}
	return dsn.String()
}

// NewPostgresClient подключается к базе с повторами и накатывает миграции списков
func NewPostgresClient(cfg *config.Config) *sqlx.DB {
	db, err := connectPostgres(PostgresDSN(cfg.Postgres), pgConnAttempts)
	if err != nil {
		slog.Error("can't connect to postgres", slog.String("err", err.Error()))
		panic(err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second)
	slog.Info("postgres connected", slog.String("db", cfg.Postgres.DbName))

	if err = MigratePostgres(db, cfg.Postgres.MigrationDir); err != nil {
		panic(err)
	}

	return db
}

func connectPostgres(dsn string, attempts int) (*sqlx.DB, error) {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pgConnectTimeout)
		db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
		cancel()
		if err == nil {
			return db, nil
		}

		lastErr = err
		slog.Info(
			"postgres is not ready yet",
			slog.Int("attempt", attempt),
			slog.Int("attempts left", attempts-attempt),
			slog.String("err", err.Error()),
		)
		time.Sleep(pgRetryDelay)
	}

	return nil, fmt.Errorf("postgres unavailable after %d attempts: %w", attempts, lastErr)
}

// MigratePostgres накатывает схему stocks/stock_lists/stock_list_items из migrationDir
func MigratePostgres(db *sqlx.DB, migrationDir string) error {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		slog.Error("postgres migration failed on postgres.WithInstance", slog.String("err", err.Error()))
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationDir, "postgres", driver)
	if err != nil {
		slog.Error("postgres migration failed on migrate.NewWithDatabaseInstance", slog.String("err", err.Error()))
		return err
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Info("postgres schema is up to date")
	case err != nil:
		slog.Error("postgres migration failed on m.Up()", slog.String("err", err.Error()))
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		slog.Warn("can't read migration version", slog.String("err", err.Error()))
		return nil
	}
	slog.Info("postgres migrated", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))

	return nil
}
