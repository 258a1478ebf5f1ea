package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_WireShape(t *testing.T) {
	doc := NewDocument("orders-service", NewSchema("data", "1.4.0", []Table{
		{
			Name: "sessions",
			Columns: []Column{
				{Name: "user_id", Type: "int8", Nullable: false},
				{Name: "note", Type: "text", Nullable: true},
			},
			PrimaryKey: NewPrimaryKey("sessions_pkey", []string{"user_id"}),
			ForeignKeys: []ForeignKey{{
				Name:                  "fk_user",
				ColumnNames:           []string{"user_id"},
				ReferencedTableName:   "users",
				ReferencedColumnNames: []string{"id"},
			}},
		},
		{
			Name:        "audit_log",
			Columns:     []Column{},
			ForeignKeys: []ForeignKey{},
		},
	}))

	raw, err := doc.Marshal()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"systemComponentName": "orders-service",
		"schema": {
			"name": "data",
			"version": "1.4.0",
			"tables": [
				{
					"name": "sessions",
					"columns": [
						{"name": "user_id", "type": "int8", "nullable": false},
						{"name": "note", "type": "text", "nullable": true}
					],
					"primaryKey": {"name": "sessions_pkey", "columnNames": ["user_id"]},
					"foreignKeys": [
						{"name": "fk_user", "columnNames": ["user_id"],
						 "referencedTableName": "users", "referencedColumnNames": ["id"]}
					]
				},
				{"name": "audit_log", "columns": [], "primaryKey": null, "foreignKeys": []}
			]
		}
	}`, string(raw))
}

func TestNewSchema_EmptyTablesEncodeAsArray(t *testing.T) {
	raw, err := NewDocument("svc", NewSchema("data", "na", nil)).Marshal()
	require.NoError(t, err)

	assert.JSONEq(t, `{"systemComponentName":"svc","schema":{"name":"data","version":"na","tables":[]}}`, string(raw))
}

func TestNewPrimaryKey(t *testing.T) {
	assert.Nil(t, NewPrimaryKey("pk", nil))

	unnamed := NewPrimaryKey("", []string{"id"})
	require.NotNil(t, unnamed)
	assert.Nil(t, unnamed.Name)
	assert.Equal(t, "", unnamed.KeyName())

	named := NewPrimaryKey("users_pkey", []string{"id"})
	assert.Equal(t, "users_pkey", named.KeyName())

	var absent *PrimaryKey
	assert.Equal(t, "", absent.KeyName())
}

func TestSchema_Lookups(t *testing.T) {
	s := NewSchema("data", "1", []Table{
		{Name: "a", Columns: []Column{{Name: "x"}, {Name: "y"}}},
		{Name: "b", Columns: []Column{{Name: "z"}}},
	})

	assert.Equal(t, 3, s.ColumnCount())
	tbl, ok := s.Table("b")
	assert.True(t, ok)
	assert.Equal(t, "b", tbl.Name)
	_, ok = s.Table("c")
	assert.False(t, ok)

	assert.Equal(t, 2, NewDocument("svc", s).TableCount())
	assert.Equal(t, 0, (*Document)(nil).TableCount())
}
