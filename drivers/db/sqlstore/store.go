// Package sqlstore implements content.Store on SQLite or PostgreSQL through
// sqlx. Queries are written with "?" placeholders and rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/burugo/ante/common"
	"github.com/burugo/ante/content"
)

// Supported dialects.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// Store is the SQL source of truth. Every statement is filtered by company.
type Store struct {
	db      *sqlx.DB
	dialect string
	logger  *slog.Logger
}

var _ content.Store = (*Store)(nil)

// DriverName maps a configured database driver ("sqlite", "sqlite3",
// "postgres", "postgresql") to its dialect.
func DriverName(driver string) (string, error) {
	switch driver {
	case "sqlite", DialectSQLite:
		return DialectSQLite, nil
	case DialectPostgres, "postgresql", "pg":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to dsn with driver and verifies the connection.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	dialect, err := DriverName(driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		// One writer at a time; avoids "database is locked" under concurrent requests.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(defaultMaxOpenConns)
		db.SetMaxIdleConns(defaultMaxIdleConns)
		db.SetConnMaxLifetime(defaultConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}
	return New(db, logger), nil
}

// New wraps an open connection. The dialect is taken from db.DriverName().
func New(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		dialect: db.DriverName(),
		logger:  logger.With(slog.String("component", "sqlstore"), slog.String("dialect", db.DriverName())),
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sqlx.DB { return s.db }

// Dialect returns DialectSQLite or DialectPostgres.
func (s *Store) Dialect() string { return s.dialect }

// Close closes the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("error closing %s connection: %w", s.dialect, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) get(ctx context.Context, q sqlx.QueryerContext, dest any, query string, args ...any) error {
	query = s.db.Rebind(query)
	start := time.Now()
	err := sqlx.GetContext(ctx, q, dest, query, args...)
	s.trace(ctx, query, args, start, err)
	return err
}

func (s *Store) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	query = s.db.Rebind(query)
	start := time.Now()
	err := s.db.SelectContext(ctx, dest, query, args...)
	s.trace(ctx, query, args, start, err)
	return err
}

func (s *Store) exec(ctx context.Context, e sqlx.ExecerContext, query string, args ...any) (int64, error) {
	query = s.db.Rebind(query)
	start := time.Now()
	res, err := e.ExecContext(ctx, query, args...)
	s.trace(ctx, query, args, start, err)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) trace(ctx context.Context, query string, args []any, start time.Time, err error) {
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.WarnContext(ctx, "db query failed", slog.String("query", query), slog.Any("args", args),
			slog.Duration("duration", time.Since(start)), slog.Any("error", err))
		return
	}
	s.logger.DebugContext(ctx, "db query", slog.String("query", query), slog.Duration("duration", time.Since(start)))
}

// translate maps driver errors onto the content error sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, content.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (s *Store) now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
