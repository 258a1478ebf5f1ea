package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemapub/internal/model"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "inventory.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE items (sku TEXT PRIMARY KEY, qty INTEGER NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfgPath := filepath.Join(dir, "schemapub.yaml")
	cfg := "application: {name: inventory, version: 0.9.0}\n" +
		"log: {level: error}\n" +
		"database: {driver: sqlite, dsn: " + dbPath + "}\n" +
		"archrepo: {schema_name: main}\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPrint_Stdout(t *testing.T) {
	out, err := execute(t, "print", "--config", writeFixture(t))
	require.NoError(t, err)

	var doc model.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "inventory", doc.SystemComponentName)
	assert.Equal(t, "0.9.0", doc.Schema.Version)
	require.Len(t, doc.Schema.Tables, 1)
	assert.Equal(t, []string{"sku"}, doc.Schema.Tables[0].PrimaryKey.ColumnNames)
}

func TestPrint_OutputFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "schema.json")
	_, err := execute(t, "print", "-c", writeFixture(t), "-o", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"systemComponentName": "inventory"`)
}

func TestPublish_Disabled(t *testing.T) {
	_, err := execute(t, "publish", "--config", writeFixture(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing is disabled")
}

func TestConfigMissing(t *testing.T) {
	_, err := execute(t, "print", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
