// Package catalog defines the metadata source contract the schema reader
// consumes. Implementations live under internal/database.
//
// Every list operation returns rows in the order the database reports them;
// callers treat that order as authoritative.
package catalog

import "context"

// ColumnRow is one column descriptor of a table.
type ColumnRow struct {
	Name       string
	NativeType string // database type name, passed through untouched
	Nullable   string // catalog flag: "YES", "NO", or "" when unknown
}

// PrimaryKeyRow is one column taking part in a table's primary key.
// ConstraintName is repeated on every row of the same key and may be empty
// for databases that do not name primary keys.
type PrimaryKeyRow struct {
	ColumnName     string
	ConstraintName string
}

// ImportedKeyRow is one (local column, referenced column) pair of a foreign
// key. A key spanning N columns is reported as N rows.
type ImportedKeyRow struct {
	ConstraintName   string
	LocalColumn      string
	ReferencedTable  string
	ReferencedColumn string
}

// Source answers catalog queries for one schema.
type Source interface {
	// ListTables returns the base tables of schema (no views or system tables).
	// An unknown schema yields no tables and no error.
	ListTables(ctx context.Context, schema string) ([]string, error)

	// ListColumns returns the columns of a table, usually in ordinal order.
	ListColumns(ctx context.Context, schema, table string) ([]ColumnRow, error)

	// ListPrimaryKeyColumns returns the primary key rows of a table.
	ListPrimaryKeyColumns(ctx context.Context, schema, table string) ([]PrimaryKeyRow, error)

	// ListImportedKeyColumns returns the foreign key rows of a table,
	// rows of one constraint adjacent to each other.
	ListImportedKeyColumns(ctx context.Context, schema, table string) ([]ImportedKeyRow, error)
}

// Conn is a Source bound to one acquired database connection.
// Close releases the connection and must always be called.
type Conn interface {
	Source
	Close() error
}

// Connector hands out connections. Each call returns an independent
// connection, so concurrent readers never share one.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}
