// Package store implements the durable persistence layer: the workflow
// catalog and the paused-execution table, backed by SQLite (local file)
// or libSQL (Turso, remote), selected by URL scheme.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Open connects to databaseURL, choosing the libsql driver for
// libsql:// and http(s):// URLs and the pure-Go sqlite driver for a
// local file path, and applies the PRAGMA tuning either driver needs
// for safe concurrent access.
func Open(databaseURL string) (*sql.DB, error) {
	isLibSQL := strings.HasPrefix(databaseURL, "libsql://") ||
		strings.HasPrefix(databaseURL, "http://") ||
		strings.HasPrefix(databaseURL, "https://")

	if isLibSQL {
		conn, err := sql.Open("libsql", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open libsql database: %w", err)
		}
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(5 * time.Minute)
		if err := conn.Ping(); err != nil {
			return nil, fmt.Errorf("connect to libsql database: %w", err)
		}
		return conn, nil
	}

	if dir := filepath.Dir(databaseURL); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	const maxRetries = 5
	const baseDelay = 100 * time.Millisecond

	var conn *sql.DB
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		conn, err = sql.Open("sqlite", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)

		if err = conn.Ping(); err != nil {
			if attempt == maxRetries-1 {
				return nil, fmt.Errorf("ping database after %d attempts: %w", maxRetries, err)
			}
			conn.Close()
			time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
			continue
		}
		break
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	return conn, nil
}
