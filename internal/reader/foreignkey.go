package reader

import (
	"context"

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/model"
)

// foreignKeyBuilder accumulates the rows of one constraint. columns and
// referenced always have equal length: index i is the pair from one row.
type foreignKeyBuilder struct {
	name            string
	referencedTable string
	columns         []string
	referenced      []string
}

func (b *foreignKeyBuilder) add(local, referenced string) {
	b.columns = append(b.columns, local)
	b.referenced = append(b.referenced, referenced)
}

func (b *foreignKeyBuilder) build() model.ForeignKey {
	return model.ForeignKey{
		Name:                  b.name,
		ColumnNames:           b.columns,
		ReferencedTableName:   b.referencedTable,
		ReferencedColumnNames: b.referenced,
	}
}

// collectForeignKeys groups imported key rows by constraint name. Keys come
// out in the order their constraint was first seen.
func (r *Reader) collectForeignKeys(ctx context.Context, src catalog.Source, schemaName, tableName string) ([]model.ForeignKey, error) {
	rows, err := src.ListImportedKeyColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	builders := make(map[string]*foreignKeyBuilder)
	var order []string

	for i, row := range rows {
		if err := checkImportedKeyRow(tableName, i, row); err != nil {
			return nil, err
		}

		b, ok := builders[row.ConstraintName]
		if !ok {
			b = &foreignKeyBuilder{name: row.ConstraintName, referencedTable: row.ReferencedTable}
			builders[row.ConstraintName] = b
			order = append(order, row.ConstraintName)
		} else if b.referencedTable != row.ReferencedTable {
			return nil, errs.Inconsistent("foreign key %s of %s references both %s and %s",
				row.ConstraintName, tableName, b.referencedTable, row.ReferencedTable)
		}
		b.add(row.LocalColumn, row.ReferencedColumn)
	}

	fks := make([]model.ForeignKey, 0, len(order))
	for _, name := range order {
		fk := builders[name].build()
		r.log.DebugWith("foreign key", map[string]any{
			"table":              tableName,
			"name":               fk.Name,
			"columns":            fk.ColumnNames,
			"references":         fk.ReferencedTableName,
			"referenced_columns": fk.ReferencedColumnNames,
		})
		fks = append(fks, fk)
	}
	return fks, nil
}

func checkImportedKeyRow(tableName string, i int, row catalog.ImportedKeyRow) error {
	switch {
	case row.ConstraintName == "":
		return errs.Inconsistent("foreign key row %d of %s has no constraint name", i, tableName)
	case row.LocalColumn == "":
		return errs.Inconsistent("foreign key %s of %s: row %d has no local column", row.ConstraintName, tableName, i)
	case row.ReferencedTable == "":
		return errs.Inconsistent("foreign key %s of %s: row %d has no referenced table", row.ConstraintName, tableName, i)
	case row.ReferencedColumn == "":
		return errs.Inconsistent("foreign key %s of %s: row %d has no referenced column", row.ConstraintName, tableName, i)
	}
	return nil
}
