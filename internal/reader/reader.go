// Package reader builds the schema model from catalog rows.
//
// ReadSchema acquires one connection, enumerates the base tables of a schema
// and, for every table, folds column, primary key and foreign key rows into a
// model.Table. The pass is sequential and holds no state between calls.
package reader

import (
	"context"
	"fmt"

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/model"
)

// Reader turns catalog rows into model values. It is safe for concurrent
// use as long as each call gets its own connection.
type Reader struct {
	log *logger.Logger
}

// New returns a Reader logging through log. A nil log discards output.
func New(log *logger.Logger) *Reader {
	if log == nil {
		log = logger.Nop()
	}
	return &Reader{log: log.Component("reader")}
}

// ReadSchema reads every base table of schemaName through a connection
// obtained from c and returns the schema stamped with version.
// The connection is closed before ReadSchema returns, on success or failure.
// A schema that does not exist or has no tables yields an empty table list.
func (r *Reader) ReadSchema(ctx context.Context, c catalog.Connector, schemaName, version string) (schema *model.Schema, err error) {
	r.log.InfoWith("reading database model", map[string]any{"schema": schemaName})

	conn, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			schema, err = nil, cerr
		}
	}()

	names, err := conn.ListTables(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	tables := make([]model.Table, 0, len(names))
	for _, name := range names {
		table, err := r.ReadTable(ctx, conn, schemaName, name)
		if err != nil {
			return nil, fmt.Errorf("table %s.%s: %w", schemaName, name, err)
		}
		tables = append(tables, table)
	}

	r.log.Debugf("collected %d tables", len(tables))
	return model.NewSchema(schemaName, version, tables), nil
}

// ReadTable assembles one table from src. Any collector failure aborts
// assembly and is returned as is.
func (r *Reader) ReadTable(ctx context.Context, src catalog.Source, schemaName, tableName string) (model.Table, error) {
	r.log.DebugWith("processing table", map[string]any{"table": tableName})

	columns, err := r.collectColumns(ctx, src, schemaName, tableName)
	if err != nil {
		return model.Table{}, err
	}

	pk, err := r.collectPrimaryKey(ctx, src, schemaName, tableName)
	if err != nil {
		return model.Table{}, err
	}

	fks, err := r.collectForeignKeys(ctx, src, schemaName, tableName)
	if err != nil {
		return model.Table{}, err
	}

	return model.Table{
		Name:        tableName,
		Columns:     columns,
		PrimaryKey:  pk,
		ForeignKeys: fks,
	}, nil
}
