package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Source is a SQLite database opened read-only so that query results can be
// compared against expectations.
type Source struct {
	db *sql.DB
}

// OpenSource opens the SQLite file at path without write access.
// The file must exist.
func OpenSource(path string) (*Source, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to source %s: %w", path, err)
	}
	return &Source{db: db}, nil
}

// Close closes the database connection.
func (s *Source) Close() error {
	return s.db.Close()
}

// Records runs query and returns one map per row, keyed by column name.
// TEXT and BLOB values are returned as strings. Returns an empty slice (not
// nil) for no rows.
func (s *Source) Records(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	return queryRecords(ctx, s.db, query, args...)
}

func queryRecords(ctx context.Context, db *sql.DB, query string, args ...any) ([]map[string]any, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query records: columns: %w", err)
	}

	records := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
