package mysql

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/database"
	"github.com/koustreak/schemapub/internal/errs"
)

// Driver is a MySQL implementation of database.DB backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
//
// MySQL has no schemas inside a database; the schema name passed to the
// catalog queries is the database (TABLE_SCHEMA) name.
type Driver struct {
	db  *sql.DB
	cfg *database.Config
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db, cfg: cfg}

	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

func (d *Driver) Ping(ctx context.Context) error {
	ctx, cancel := d.cfg.ConnectContext(ctx)
	defer cancel()

	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (d *Driver) Close() {
	_ = d.db.Close()
}

func (d *Driver) Driver() database.Driver { return database.DriverMySQL }

// Connect reserves one connection from the pool for a catalog pass.
func (d *Driver) Connect(ctx context.Context) (catalog.Conn, error) {
	connCtx, cancel := d.cfg.ConnectContext(ctx)
	defer cancel()

	conn, err := d.db.Conn(connCtx)
	if err != nil {
		return nil, mapError(err, "failed to acquire connection")
	}
	return &catalogConn{conn: conn, cfg: d.cfg}, nil
}

type catalogConn struct {
	conn *sql.Conn
	cfg  *database.Config
}

func (c *catalogConn) Close() error {
	if err := c.conn.Close(); err != nil {
		return mapError(err, "failed to release connection")
	}
	return nil
}

func (c *catalogConn) ListTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	return query(ctx, c, "failed to list tables", database.ScanString, q, schema)
}

func (c *catalogConn) ListColumns(ctx context.Context, schema, table string) ([]catalog.ColumnRow, error) {
	const q = `
		SELECT column_name,
		       data_type,
		       is_nullable
		FROM information_schema.columns
		WHERE table_schema = ?
		  AND table_name   = ?
		ORDER BY ordinal_position`

	return query(ctx, c, "failed to fetch columns", func(rows *sql.Rows) (catalog.ColumnRow, error) {
		var r catalog.ColumnRow
		err := rows.Scan(&r.Name, &r.NativeType, &r.Nullable)
		return r, err
	}, q, schema, table)
}

// ListPrimaryKeyColumns returns the key columns in key order. MySQL always
// names the primary key PRIMARY.
func (c *catalogConn) ListPrimaryKeyColumns(ctx context.Context, schema, table string) ([]catalog.PrimaryKeyRow, error) {
	const q = `
		SELECT column_name,
		       constraint_name
		FROM information_schema.key_column_usage
		WHERE table_schema    = ?
		  AND table_name      = ?
		  AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position`

	return query(ctx, c, "failed to fetch primary key", func(rows *sql.Rows) (catalog.PrimaryKeyRow, error) {
		var r catalog.PrimaryKeyRow
		err := rows.Scan(&r.ColumnName, &r.ConstraintName)
		return r, err
	}, q, schema, table)
}

// ListImportedKeyColumns returns the column pairs of every foreign key of
// table, grouped by constraint and in key order within a constraint.
func (c *catalogConn) ListImportedKeyColumns(ctx context.Context, schema, table string) ([]catalog.ImportedKeyRow, error) {
	const q = `
		SELECT constraint_name,
		       column_name,
		       referenced_table_name,
		       referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema           = ?
		  AND table_name             = ?
		  AND referenced_table_name IS NOT NULL
		ORDER BY constraint_name, ordinal_position`

	return query(ctx, c, "failed to fetch foreign keys", func(rows *sql.Rows) (catalog.ImportedKeyRow, error) {
		var r catalog.ImportedKeyRow
		err := rows.Scan(&r.ConstraintName, &r.LocalColumn, &r.ReferencedTable, &r.ReferencedColumn)
		return r, err
	}, q, schema, table)
}

func query[T any](ctx context.Context, c *catalogConn, errMsg string, scan func(*sql.Rows) (T, error), q string, args ...any) ([]T, error) {
	ctx, cancel := c.cfg.QueryContext(ctx)
	defer cancel()

	out, err := database.QueryAll(ctx, c.conn, scan, q, args...)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	return out, nil
}
