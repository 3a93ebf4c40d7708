// Package sqldata implements the Structured Data Store: database_save
// and database_query's backing store. Rows are kept in a generic
// key/value table (structured_rows) rather than one physical table per
// workflow-declared table_name, since workflow authors can name tables
// arbitrarily at author time with no DDL step to create them.
package sqldata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Store implements action.SQLDataStore against a shared *sql.DB. Writes
// go through writeMu (passed in by the caller) to respect the same
// single-writer constraint internal/store enforces.
type Store struct {
	db      *sql.DB
	writeMu Locker
}

// Locker is the subset of sync.Mutex the store needs, supplied by the
// caller so writes serialize against the same lock internal/store uses.
type Locker interface {
	Lock()
	Unlock()
}

func New(db *sql.DB, writeMu Locker) *Store {
	return &Store{db: db, writeMu: writeMu}
}

// rowKey derives a stable key from the primary key columns' values in
// row; when none are given, the key is the hex-encoded JSON of the whole
// row, so saves of distinct rows accumulate while an identical row is
// stored once.
func rowKey(primaryKeyColumns []string, row map[string]interface{}) (string, error) {
	if len(primaryKeyColumns) == 0 {
		b, err := json.Marshal(row)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("row:%x", b), nil
	}
	parts := make([]string, 0, len(primaryKeyColumns))
	for _, col := range primaryKeyColumns {
		parts = append(parts, fmt.Sprintf("%s=%v", col, row[col]))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|"), nil
}

// Save satisfies action.SQLDataStore: it upserts row into table,
// keyed by primaryKeyColumns when given.
func (s *Store) Save(ctx context.Context, table string, primaryKeyColumns []string, row map[string]interface{}) error {
	key, err := rowKey(primaryKeyColumns, row)
	if err != nil {
		return fmt.Errorf("derive row key for table %q: %w", table, err)
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row for table %q: %w", table, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO structured_rows (table_name, row_key, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_name, row_key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		table, key, string(data), now, now)
	if err != nil {
		return fmt.Errorf("save row to table %q: %w", table, err)
	}
	return nil
}

// Query satisfies action.SQLDataStore: sqlText runs verbatim against
// the database, parameterised with params. A query_template naturally
// targets structured_rows directly (e.g. with SQLite's json_extract
// against its data column), since that's where Save lands rows.
func (s *Store) Query(ctx context.Context, sqlText string, params []interface{}) ([]map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			record[col] = normalizeValue(values[i])
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// normalizeValue converts driver-returned []byte (TEXT columns come
// back this way from modernc.org/sqlite) into a plain string so callers
// get JSON-friendly values rather than byte slices.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
