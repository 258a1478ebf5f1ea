package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/database"
	"github.com/koustreak/schemapub/internal/errs"
)

// Driver is a PostgreSQL implementation of database.DB backed by pgxpool.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	pool *pgxpool.Pool
	cfg  *database.Config
}

// New connects to PostgreSQL using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapError(err, "failed to create connection pool")
	}

	d := &Driver{pool: pool, cfg: cfg}

	if err := d.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return d, nil
}

// --- database.DB implementation ---

// Ping verifies the database is reachable by acquiring and releasing a connection.
func (d *Driver) Ping(ctx context.Context) error {
	ctx, cancel := d.cfg.ConnectContext(ctx)
	defer cancel()

	if err := d.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close drains the connection pool. Call when the application shuts down.
func (d *Driver) Close() {
	d.pool.Close()
}

func (d *Driver) Driver() database.Driver { return database.DriverPostgres }

// Connect acquires one pooled connection for a catalog pass.
func (d *Driver) Connect(ctx context.Context) (catalog.Conn, error) {
	acquireCtx, cancel := d.cfg.ConnectContext(ctx)
	defer cancel()

	conn, err := d.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, mapError(err, "failed to acquire connection")
	}
	return &catalogConn{conn: conn, cfg: d.cfg}, nil
}

// catalogConn answers catalog queries on one acquired connection.
type catalogConn struct {
	conn *pgxpool.Conn
	cfg  *database.Config
}

// Close returns the connection to the pool.
func (c *catalogConn) Close() error {
	c.conn.Release()
	return nil
}

// ListTables returns the base tables of schema ordered by name.
func (c *catalogConn) ListTables(ctx context.Context, schema string) ([]string, error) {
	const q = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	return collect(ctx, c, "failed to list tables", q, pgx.RowTo[string], schema)
}

// ListColumns returns the columns of a table in ordinal order.
// The type is udt_name, the name PostgreSQL uses in DDL (int4, varchar, ...).
func (c *catalogConn) ListColumns(ctx context.Context, schema, table string) ([]catalog.ColumnRow, error) {
	const q = `
		SELECT column_name::text,
		       udt_name::text,
		       is_nullable::text
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND table_name   = $2
		ORDER BY ordinal_position`

	return collect(ctx, c, "failed to fetch columns", q, pgx.RowToStructByPos[catalog.ColumnRow], schema, table)
}

// ListPrimaryKeyColumns returns the primary key columns in key order.
func (c *catalogConn) ListPrimaryKeyColumns(ctx context.Context, schema, table string) ([]catalog.PrimaryKeyRow, error) {
	const q = `
		SELECT a.attname::text,
		       con.conname::text
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class     cl ON cl.oid = con.conrelid
		JOIN pg_catalog.pg_namespace ns ON ns.oid = cl.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_catalog.pg_attribute a
		  ON a.attrelid = con.conrelid
		 AND a.attnum   = k.attnum
		WHERE con.contype = 'p'
		  AND ns.nspname  = $1
		  AND cl.relname  = $2
		ORDER BY k.ord`

	return collect(ctx, c, "failed to fetch primary key", q, pgx.RowToStructByPos[catalog.PrimaryKeyRow], schema, table)
}

// ListImportedKeyColumns returns one row per column pair of every foreign
// key declared on table. conkey and confkey are unnested together so the
// i-th local column always meets the i-th referenced column.
func (c *catalogConn) ListImportedKeyColumns(ctx context.Context, schema, table string) ([]catalog.ImportedKeyRow, error) {
	const q = `
		SELECT con.conname::text,
		       la.attname::text,
		       rcl.relname::text,
		       ra.attname::text
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class     cl  ON cl.oid  = con.conrelid
		JOIN pg_catalog.pg_namespace ns  ON ns.oid  = cl.relnamespace
		JOIN pg_catalog.pg_class     rcl ON rcl.oid = con.confrelid
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey)
		     WITH ORDINALITY AS k(local_attnum, ref_attnum, ord)
		JOIN pg_catalog.pg_attribute la
		  ON la.attrelid = con.conrelid
		 AND la.attnum   = k.local_attnum
		JOIN pg_catalog.pg_attribute ra
		  ON ra.attrelid = con.confrelid
		 AND ra.attnum   = k.ref_attnum
		WHERE con.contype = 'f'
		  AND ns.nspname  = $1
		  AND cl.relname  = $2
		ORDER BY con.conname, k.ord`

	return collect(ctx, c, "failed to fetch foreign keys", q, pgx.RowToStructByPos[catalog.ImportedKeyRow], schema, table)
}

// collect runs q under the per-query deadline and scans every row with fn.
// The result is never nil.
func collect[T any](ctx context.Context, c *catalogConn, errMsg, q string, fn pgx.RowToFunc[T], args ...any) ([]T, error) {
	ctx, cancel := c.cfg.QueryContext(ctx)
	defer cancel()

	rows, err := c.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	out, err := pgx.CollectRows(rows, fn)
	if err != nil {
		return nil, mapError(err, errMsg)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
