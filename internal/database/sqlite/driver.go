// Package sqlite reads catalog metadata from SQLite database files.
//
// The schema name is an attached database name: "main" for the file the DSN
// opens, "temp", or any name given to ATTACH. SQLite does not name primary
// keys, and foreign keys get the synthetic name fk_<table>_<id>.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3" driver

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/database"
	"github.com/koustreak/schemapub/internal/errs"
)

// Driver is a SQLite implementation of database.DB.
type Driver struct {
	db  *sql.DB
	cfg *database.Config
}

// New opens the database file named by cfg.DSN and pings it.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db, cfg: cfg}
	if err := d.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return d, nil
}

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

func (d *Driver) Driver() database.Driver { return database.DriverSQLite }

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

// ListTables returns the tables of an attached database, excluding SQLite's
// internal sqlite_* tables. A name that is not attached yields no tables.
func (c *catalogConn) ListTables(ctx context.Context, schema string) ([]string, error) {
	attached, err := query(ctx, c, "failed to list databases", database.ScanString,
		`SELECT name FROM pragma_database_list WHERE name = ?`, schema)
	if err != nil {
		return nil, err
	}
	if len(attached) == 0 {
		return []string{}, nil
	}

	q := fmt.Sprintf(`
		SELECT name
		FROM %s.sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite\_%%' ESCAPE '\'
		ORDER BY name`, database.QuoteIdent(schema))

	return query(ctx, c, "failed to list tables", database.ScanString, q)
}

// ListColumns maps the notnull flag onto the YES/NO vocabulary of
// information_schema.
func (c *catalogConn) ListColumns(ctx context.Context, schema, table string) ([]catalog.ColumnRow, error) {
	const q = `
		SELECT name,
		       type,
		       CASE "notnull" WHEN 0 THEN 'YES' ELSE 'NO' END
		FROM pragma_table_info(?, ?)
		ORDER BY cid`

	return query(ctx, c, "failed to fetch columns", func(rows *sql.Rows) (catalog.ColumnRow, error) {
		var r catalog.ColumnRow
		err := rows.Scan(&r.Name, &r.NativeType, &r.Nullable)
		return r, err
	}, q, table, schema)
}

// ListPrimaryKeyColumns returns the key columns ordered by their position in
// the key. ConstraintName is always empty.
func (c *catalogConn) ListPrimaryKeyColumns(ctx context.Context, schema, table string) ([]catalog.PrimaryKeyRow, error) {
	names, err := c.primaryKeyColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	rows := make([]catalog.PrimaryKeyRow, len(names))
	for i, name := range names {
		rows[i] = catalog.PrimaryKeyRow{ColumnName: name}
	}
	return rows, nil
}

func (c *catalogConn) primaryKeyColumns(ctx context.Context, schema, table string) ([]string, error) {
	const q = `
		SELECT name
		FROM pragma_table_info(?, ?)
		WHERE pk > 0
		ORDER BY pk`

	return query(ctx, c, "failed to fetch primary key", database.ScanString, q, table, schema)
}

type foreignKeyRow struct {
	id    int
	seq   int
	table string
	from  string
	to    sql.NullString
}

// ListImportedKeyColumns reads pragma_foreign_key_list. A REFERENCES clause
// without a column list points at the referenced table's primary key; the
// seq-th key column fills in the missing "to" column.
func (c *catalogConn) ListImportedKeyColumns(ctx context.Context, schema, table string) ([]catalog.ImportedKeyRow, error) {
	const q = `
		SELECT id, seq, "table", "from", "to"
		FROM pragma_foreign_key_list(?, ?)
		ORDER BY id, seq`

	fkRows, err := query(ctx, c, "failed to fetch foreign keys", func(rows *sql.Rows) (foreignKeyRow, error) {
		var r foreignKeyRow
		err := rows.Scan(&r.id, &r.seq, &r.table, &r.from, &r.to)
		return r, err
	}, q, table, schema)
	if err != nil {
		return nil, err
	}

	implicit := make(map[string][]string)
	out := make([]catalog.ImportedKeyRow, 0, len(fkRows))
	for _, r := range fkRows {
		to := r.to.String
		if !r.to.Valid || to == "" {
			pk, ok := implicit[r.table]
			if !ok {
				if pk, err = c.primaryKeyColumns(ctx, schema, r.table); err != nil {
					return nil, err
				}
				implicit[r.table] = pk
			}
			if r.seq < len(pk) {
				to = pk[r.seq]
			}
		}

		out = append(out, catalog.ImportedKeyRow{
			ConstraintName:   fmt.Sprintf("fk_%s_%d", table, r.id),
			LocalColumn:      r.from,
			ReferencedTable:  r.table,
			ReferencedColumn: to,
		})
	}
	return out, nil
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
