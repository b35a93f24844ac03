// Package dbtest opens migrated throwaway databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/lookatme/backend/internal/db"
)

// SQLiteDSN returns a data source name for a SQLite file with the pragmas the
// service relies on.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite&_txlock=immediate", path)
}

// Open creates a fresh SQLite database under t.TempDir, applies every migration
// and closes it when the test finishes.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := db.Connect(ctx, db.DriverSQLite, SQLiteDSN(filepath.Join(t.TempDir(), "lookatme.db")))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.MigrateUp(ctx, conn, db.DriverSQLite); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return conn
}
