package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Connect opens a connection pool for the given driver and verifies it with a ping.
// SQLite databases are created on first use, including any missing parent directory.
func Connect(ctx context.Context, driver, databaseURL string) (*sqlx.DB, error) {
	if driver == DriverSQLite {
		if dir := filepath.Dir(sqlitePath(databaseURL)); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
	}

	conn, err := sqlx.ConnectContext(ctx, driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	slog.Default().Info("database connected", "driver", driver)
	return conn, nil
}

// Ping reports whether the database answers within the context deadline.
func Ping(ctx context.Context, conn *sqlx.DB) error {
	if conn == nil {
		return fmt.Errorf("database not configured")
	}
	return conn.PingContext(ctx)
}

func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == ":memory:" {
		return ""
	}
	return path
}
