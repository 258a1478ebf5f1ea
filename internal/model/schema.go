// Package model holds the normalized description of a database schema and
// the document published to the architecture repository.
//
// Values are built once by the reader and treated as read-only afterwards.
// Slices are never nil so that they encode as [] on the wire.
package model

// Schema is one introspected database schema.
type Schema struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Tables  []Table `json:"tables"`
}

// Table is a base table with its columns and keys.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  *PrimaryKey  `json:"primaryKey"` // nil when the table has none
	ForeignKeys []ForeignKey `json:"foreignKeys"`
}

// Column is a table column. Type is the database-native type name.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// PrimaryKey is a primary key spanning one or more columns.
type PrimaryKey struct {
	Name        *string  `json:"name"`
	ColumnNames []string `json:"columnNames"`
}

// ForeignKey maps ColumnNames[i] of the owning table to
// ReferencedColumnNames[i] of ReferencedTableName.
type ForeignKey struct {
	Name                  string   `json:"name"`
	ColumnNames           []string `json:"columnNames"`
	ReferencedTableName   string   `json:"referencedTableName"`
	ReferencedColumnNames []string `json:"referencedColumnNames"`
}

// NewSchema returns a Schema, replacing a nil table list with an empty one.
func NewSchema(name, version string, tables []Table) *Schema {
	if tables == nil {
		tables = []Table{}
	}
	return &Schema{Name: name, Version: version, Tables: tables}
}

// NewPrimaryKey returns a primary key over columns. An empty name is
// recorded as absent. It returns nil when columns is empty.
func NewPrimaryKey(name string, columns []string) *PrimaryKey {
	if len(columns) == 0 {
		return nil
	}
	pk := &PrimaryKey{ColumnNames: columns}
	if name != "" {
		pk.Name = &name
	}
	return pk
}

// KeyName returns the constraint name, or "" when it is absent.
func (pk *PrimaryKey) KeyName() string {
	if pk == nil || pk.Name == nil {
		return ""
	}
	return *pk.Name
}

// ColumnCount returns the total number of columns across all tables.
func (s *Schema) ColumnCount() int {
	n := 0
	for _, t := range s.Tables {
		n += len(t.Columns)
	}
	return n
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
