package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // goqu dialect
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	pgUniqueViolation = "23505"

	// sqliteDriverName is go-sqlite3 with ulower registered on every
	// connection. SQLite's own LOWER only folds ASCII.
	sqliteDriverName = "sqlite3_shareit"
)

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriverName, sqlx.QUESTION)
}

type DB struct {
	*sqlx.DB
	driver  string
	dialect goqu.DialectWrapper
	logger  *zerolog.Logger
}

// Open connects to the database selected by cfg.Driver and creates the schema.
func Open(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return NewPostgresDB(cfg.Postgres.DSN(), cfg.Postgres.MaxConnections, logger)
	case config.DriverSQLite, "":
		return NewDB(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewDB opens an SQLite database at path. Write transactions take the lock on
// BEGIN so that check-then-insert sequences cannot interleave.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dsn := "file::memory:?_txlock=immediate"
	inMemory := path == ":memory:"
	if !inMemory {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL"
	}

	sqlDB, err := sqlx.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}

	db, err := initDB(sqlDB, config.DriverSQLite, logger)
	if err != nil {
		return nil, err
	}
	db.logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

// NewPostgresDB opens a Postgres database through the pgx stdlib driver.
func NewPostgresDB(dsn string, maxConns int, logger *zerolog.Logger) (*DB, error) {
	sqlDB, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
	}

	db, err := initDB(sqlDB, config.DriverPostgres, logger)
	if err != nil {
		return nil, err
	}
	db.logger.Info().Msg("postgres database initialized")
	return db, nil
}

func initDB(sqlDB *sqlx.DB, driver string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	db := &DB{
		DB:      sqlDB,
		driver:  driver,
		dialect: goqu.Dialect(driver),
		logger:  logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.createTables(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// Driver reports the database/sql driver family in use.
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) createTables(ctx context.Context) error {
	queries := sqliteSchema
	if db.driver == config.DriverPostgres {
		queries = postgresSchema
	}
	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS requests (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            description TEXT NOT NULL,
            requester_id INTEGER NOT NULL,
            created_at DATETIME NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS items (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT NOT NULL,
            is_available BOOLEAN NOT NULL,
            owner_id INTEGER NOT NULL,
            request_id INTEGER,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            start_time DATETIME NOT NULL,
            end_time DATETIME NOT NULL,
            item_id INTEGER NOT NULL,
            booker_id INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'WAITING',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1,
            CHECK (end_time > start_time)
        )`,
	`CREATE TABLE IF NOT EXISTS comments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            text TEXT NOT NULL,
            item_id INTEGER NOT NULL,
            author_id INTEGER NOT NULL,
            created_at DATETIME NOT NULL
        )`,
	`CREATE INDEX IF NOT EXISTS idx_items_owner_id ON items(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_request_id ON items(request_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_requester_id ON requests(requester_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_item_time ON bookings(item_id, start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_booker_id ON bookings(booker_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_item_id ON comments(item_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS requests (
            id BIGSERIAL PRIMARY KEY,
            description TEXT NOT NULL,
            requester_id BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS items (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT NOT NULL,
            is_available BOOLEAN NOT NULL,
            owner_id BIGINT NOT NULL,
            request_id BIGINT,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
	`CREATE TABLE IF NOT EXISTS bookings (
            id BIGSERIAL PRIMARY KEY,
            start_time TIMESTAMPTZ NOT NULL,
            end_time TIMESTAMPTZ NOT NULL,
            item_id BIGINT NOT NULL,
            booker_id BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'WAITING',
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            version BIGINT NOT NULL DEFAULT 1,
            CHECK (end_time > start_time)
        )`,
	`CREATE TABLE IF NOT EXISTS comments (
            id BIGSERIAL PRIMARY KEY,
            text TEXT NOT NULL,
            item_id BIGINT NOT NULL,
            author_id BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
	`CREATE INDEX IF NOT EXISTS idx_items_owner_id ON items(owner_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_request_id ON items(request_id)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_requester_id ON requests(requester_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_item_time ON bookings(item_id, start_time, end_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_booker_id ON bookings(booker_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_item_id ON comments(item_id)`,
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
	Rebind(query string) string
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// insertReturningID runs an INSERT ... RETURNING id statement written with ? placeholders.
func insertReturningID(ctx context.Context, q queryer, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := q.QueryRowxContext(ctx, q.Rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// notFound maps sql.ErrNoRows onto the domain error kind.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// expectRow turns a zero-row UPDATE or DELETE into a not-found error.
func expectRow(res sql.Result, format string, args ...interface{}) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return nil
}
