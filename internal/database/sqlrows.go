package database

import (
	"context"
	"database/sql"
	"strings"
)

// QueryAll runs q on conn and scans every row with scan. The result is never
// nil. Errors come back unmapped so each driver can classify its own.
func QueryAll[T any](ctx context.Context, conn *sql.Conn, scan func(*sql.Rows) (T, error), q string, args ...any) ([]T, error) {
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ScanString reads a single text column.
func ScanString(rows *sql.Rows) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}

// QuoteIdent wraps a SQL identifier in double-quotes (ANSI standard).
// Use it only where the identifier cannot be passed as a parameter.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
