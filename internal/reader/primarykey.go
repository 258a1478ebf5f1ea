package reader

import (
	"context"

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/model"
)

// collectPrimaryKey folds primary key rows into one key, or nil when the
// table has none. Columns keep row order; the name comes from the first row.
func (r *Reader) collectPrimaryKey(ctx context.Context, src catalog.Source, schemaName, tableName string) (*model.PrimaryKey, error) {
	rows, err := src.ListPrimaryKeyColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	name := rows[0].ConstraintName
	columns := make([]string, 0, len(rows))
	for i, row := range rows {
		if row.ColumnName == "" {
			return nil, errs.Inconsistent("primary key row %d of %s has no column", i, tableName)
		}
		columns = append(columns, row.ColumnName)
	}

	r.log.DebugWith("primary key", map[string]any{
		"table":   tableName,
		"name":    name,
		"columns": columns,
	})
	return model.NewPrimaryKey(name, columns), nil
}
