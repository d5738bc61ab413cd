package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// Dialect selects the SQL flavour of the underlying store.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DB wraps a connection pool together with its dialect so repositories can
// share one set of queries across PostgreSQL and SQLite.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// DialectFor infers the dialect from a DATABASE_URL value. Anything that is
// not a postgres URL is treated as a SQLite file path.
func DialectFor(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to the database named by dsn, pings it and applies migrations.
func Open(ctx context.Context, dsn string) (*DB, error) {
	switch DialectFor(dsn) {
	case DialectPostgres:
		return openPostgres(ctx, dsn)
	default:
		return openSQLite(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	}
}

func openPostgres(ctx context.Context, dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, Dialect: DialectPostgres}, nil
}

func openSQLite(ctx context.Context, path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	// SQLite prefers a single writer; the bot and admin processes
	// coordinate through busy_timeout.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := RunMigrations(DialectSQLite, path); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, Dialect: DialectSQLite}, nil
}

// Rebind rewrites '?' placeholders into the numbered form PostgreSQL expects.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func nullTimeFromMillis(ms sql.NullInt64) sql.NullTime {
	if !ms.Valid {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: fromMillis(ms.Int64), Valid: true}
}
