package reader

import (
	"context"
	"strings"

	"github.com/koustreak/schemapub/internal/catalog"
	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/model"
)

func (r *Reader) collectColumns(ctx context.Context, src catalog.Source, schemaName, tableName string) ([]model.Column, error) {
	rows, err := src.ListColumns(ctx, schemaName, tableName)
	if err != nil {
		return nil, err
	}

	columns := make([]model.Column, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		if row.Name == "" {
			return nil, errs.Inconsistent("column row %d of %s has no name", i, tableName)
		}
		if _, dup := seen[row.Name]; dup {
			return nil, errs.Inconsistent("column %s reported twice for %s", row.Name, tableName)
		}
		seen[row.Name] = struct{}{}

		columns = append(columns, model.Column{
			Name:     row.Name,
			Type:     row.NativeType,
			Nullable: isNullable(row.Nullable),
		})
	}
	return columns, nil
}

// isNullable maps the catalog's IS_NULLABLE flag. Only "yes", in any case,
// means nullable; "no", unknown and missing values do not.
func isNullable(flag string) bool {
	return strings.EqualFold(flag, "yes")
}
