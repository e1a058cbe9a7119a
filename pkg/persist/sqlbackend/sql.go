// Package sqlbackend stores persisted values in a SQL table.
//
// It works with any database/sql driver for PostgreSQL, MySQL or SQLite.
// The default table schema (SQLite dialect) is:
//
//	CREATE TABLE vstore_items (
//	    namespace  VARCHAR(191) NOT NULL,
//	    item_key   VARCHAR(191) NOT NULL,
//	    data       BLOB NOT NULL,
//	    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    PRIMARY KEY (namespace, item_key)
//	);
//
// EnsureSchema creates it. Clear deletes only the rows of the backend's
// namespace, so several hosts can share one table.
package sqlbackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Dialect selects SQL syntax.
type Dialect int

const (
	// DialectSQLite uses ? placeholders and INSERT OR REPLACE.
	DialectSQLite Dialect = iota
	// DialectPostgreSQL uses $n placeholders and ON CONFLICT.
	DialectPostgreSQL
	// DialectMySQL uses ? placeholders and ON DUPLICATE KEY UPDATE.
	DialectMySQL
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	case DialectPostgreSQL:
		return "postgres"
	case DialectMySQL:
		return "mysql"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect parses "sqlite", "postgres" or "mysql".
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "sqlite", "sqlite3", "":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgreSQL, nil
	case "mysql":
		return DialectMySQL, nil
	}
	return 0, fmt.Errorf("unknown SQL dialect %q", s)
}

// Backend is a persist.Backend on top of database/sql.
type Backend struct {
	db        *sql.DB
	table     string
	namespace string
	dialect   Dialect
	owned     bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithTable sets the table name. Default: "vstore_items".
func WithTable(name string) Option {
	return func(b *Backend) {
		b.table = name
	}
}

// WithNamespace scopes every row. Default: "default".
func WithNamespace(ns string) Option {
	return func(b *Backend) {
		b.namespace = ns
	}
}

// WithDialect sets the SQL dialect. Default: DialectSQLite.
func WithDialect(d Dialect) Option {
	return func(b *Backend) {
		b.dialect = d
	}
}

// New wraps db. Close does not close it.
func New(db *sql.DB, opts ...Option) *Backend {
	b := &Backend{
		db:        db,
		table:     "vstore_items",
		namespace: "default",
		dialect:   DialectSQLite,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EnsureSchema creates the table if it does not exist.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	blob := "BLOB"
	switch b.dialect {
	case DialectPostgreSQL:
		blob = "BYTEA"
	case DialectMySQL:
		blob = "LONGBLOB"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			namespace  VARCHAR(191) NOT NULL,
			item_key   VARCHAR(191) NOT NULL,
			data       %s NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, item_key)
		)
	`, b.table, blob)

	if _, err := b.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// placeholder returns the nth (1-based) placeholder for the dialect.
func (b *Backend) placeholder(n int) string {
	if b.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// GetItem returns the value stored under key.
func (b *Backend) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE namespace = %s AND item_key = %s`,
		b.table, b.placeholder(1), b.placeholder(2))

	var data []byte
	err := b.db.QueryRowContext(ctx, query, b.namespace, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sql get %q: %w", key, err)
	}
	return data, true, nil
}

// SetItem stores data under key.
func (b *Backend) SetItem(ctx context.Context, key string, data []byte) error {
	var query string
	switch b.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (namespace, item_key, data, updated_at)
			VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
			ON CONFLICT (namespace, item_key) DO UPDATE SET
				data = EXCLUDED.data,
				updated_at = CURRENT_TIMESTAMP
		`, b.table)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (namespace, item_key, data, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON DUPLICATE KEY UPDATE
				data = VALUES(data),
				updated_at = CURRENT_TIMESTAMP
		`, b.table)
	default:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (namespace, item_key, data, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		`, b.table)
	}

	if data == nil {
		data = []byte{}
	}
	if _, err := b.db.ExecContext(ctx, query, b.namespace, key, data); err != nil {
		return fmt.Errorf("sql set %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (b *Backend) RemoveItem(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = %s AND item_key = %s`,
		b.table, b.placeholder(1), b.placeholder(2))

	if _, err := b.db.ExecContext(ctx, query, b.namespace, key); err != nil {
		return fmt.Errorf("sql delete %q: %w", key, err)
	}
	return nil
}

// Clear deletes every row in the namespace.
func (b *Backend) Clear(ctx context.Context) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = %s`, b.table, b.placeholder(1))

	if _, err := b.db.ExecContext(ctx, query, b.namespace); err != nil {
		return fmt.Errorf("sql clear: %w", err)
	}
	return nil
}

// Keys returns the keys in the namespace in sorted order.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT item_key FROM %s WHERE namespace = %s ORDER BY item_key`,
		b.table, b.placeholder(1))

	rows, err := b.db.QueryContext(ctx, query, b.namespace)
	if err != nil {
		return nil, fmt.Errorf("sql keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sql keys: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database if the backend opened it.
func (b *Backend) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}
