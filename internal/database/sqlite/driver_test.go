package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemapub/internal/database"
	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/model"
	"github.com/koustreak/schemapub/internal/reader"
)

var fixture = []string{
	`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT)`,
	`CREATE TABLE sessions (
		user_id INTEGER NOT NULL REFERENCES users(id),
		session_id TEXT NOT NULL,
		PRIMARY KEY (user_id, session_id))`,
	`CREATE TABLE devices (
		id INTEGER PRIMARY KEY,
		user_id INTEGER REFERENCES users,
		current_session_user_id INTEGER,
		current_session_id TEXT,
		last_session_user_id INTEGER,
		last_session_id TEXT,
		parent_id INTEGER REFERENCES devices(id),
		FOREIGN KEY (current_session_user_id, current_session_id) REFERENCES sessions(user_id, session_id),
		FOREIGN KEY (last_session_user_id, last_session_id) REFERENCES sessions)`,
	`CREATE VIEW active_users AS SELECT id FROM users`,
	`CREATE INDEX devices_user ON devices(user_id)`,
}

func openTestDriver(t *testing.T, ddl ...string) *Driver {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	d, err := New(context.Background(), database.DefaultConfig(database.DriverSQLite, path))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	for _, stmt := range ddl {
		_, err := d.db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return d
}

func findForeignKey(t *testing.T, table model.Table, local string) model.ForeignKey {
	t.Helper()
	for _, fk := range table.ForeignKeys {
		if len(fk.ColumnNames) > 0 && fk.ColumnNames[0] == local {
			return fk
		}
	}
	t.Fatalf("no foreign key on %s starting with %s", table.Name, local)
	return model.ForeignKey{}
}

func TestReadSchema_SQLite(t *testing.T) {
	d := openTestDriver(t, fixture...)

	s, err := reader.New(nil).ReadSchema(context.Background(), d, "main", "3.2.1")
	require.NoError(t, err)

	assert.Equal(t, "main", s.Name)
	assert.Equal(t, "3.2.1", s.Version)
	require.Len(t, s.Tables, 3)
	assert.Equal(t, "devices", s.Tables[0].Name)
	assert.Equal(t, "sessions", s.Tables[1].Name)
	assert.Equal(t, "users", s.Tables[2].Name)

	users, _ := s.Table("users")
	assert.Equal(t, []model.Column{
		{Name: "id", Type: "INTEGER", Nullable: true},
		{Name: "email", Type: "TEXT", Nullable: true},
	}, users.Columns)
	require.NotNil(t, users.PrimaryKey)
	assert.Nil(t, users.PrimaryKey.Name)
	assert.Equal(t, []string{"id"}, users.PrimaryKey.ColumnNames)

	sessions, _ := s.Table("sessions")
	assert.False(t, sessions.Columns[0].Nullable)
	assert.Equal(t, []string{"user_id", "session_id"}, sessions.PrimaryKey.ColumnNames)
	require.Len(t, sessions.ForeignKeys, 1)
	assert.Equal(t, "fk_sessions_0", sessions.ForeignKeys[0].Name)

	devices, _ := s.Table("devices")
	require.Len(t, devices.ForeignKeys, 4)

	implicitSingle := findForeignKey(t, devices, "user_id")
	assert.Equal(t, "users", implicitSingle.ReferencedTableName)
	assert.Equal(t, []string{"id"}, implicitSingle.ReferencedColumnNames)

	explicit := findForeignKey(t, devices, "current_session_user_id")
	assert.Equal(t, []string{"current_session_user_id", "current_session_id"}, explicit.ColumnNames)
	assert.Equal(t, "sessions", explicit.ReferencedTableName)
	assert.Equal(t, []string{"user_id", "session_id"}, explicit.ReferencedColumnNames)

	implicitComposite := findForeignKey(t, devices, "last_session_user_id")
	assert.Equal(t, []string{"last_session_user_id", "last_session_id"}, implicitComposite.ColumnNames)
	assert.Equal(t, []string{"user_id", "session_id"}, implicitComposite.ReferencedColumnNames)

	self := findForeignKey(t, devices, "parent_id")
	assert.Equal(t, "devices", self.ReferencedTableName)
	assert.Equal(t, []string{"id"}, self.ReferencedColumnNames)

	names := map[string]bool{}
	for _, fk := range devices.ForeignKeys {
		assert.Regexp(t, `^fk_devices_\d+$`, fk.Name)
		names[fk.Name] = true
	}
	assert.Len(t, names, 4, "synthetic names are unique per table")
}

func TestReadSchema_SQLiteUnattachedSchema(t *testing.T) {
	d := openTestDriver(t, fixture...)

	s, err := reader.New(nil).ReadSchema(context.Background(), d, "data", "1")
	require.NoError(t, err)
	assert.NotNil(t, s.Tables)
	assert.Empty(t, s.Tables)
}

func TestReadSchema_SQLiteEmptyDatabase(t *testing.T) {
	d := openTestDriver(t)

	s, err := reader.New(nil).ReadSchema(context.Background(), d, "main", "1")
	require.NoError(t, err)
	assert.Empty(t, s.Tables)
}

func TestReadSchema_SQLiteTableWithoutPrimaryKey(t *testing.T) {
	d := openTestDriver(t, `CREATE TABLE audit_log (at TEXT NOT NULL, message TEXT)`)

	s, err := reader.New(nil).ReadSchema(context.Background(), d, "main", "1")
	require.NoError(t, err)

	require.Len(t, s.Tables, 1)
	assert.Nil(t, s.Tables[0].PrimaryKey)
	assert.NotNil(t, s.Tables[0].ForeignKeys)
	assert.Empty(t, s.Tables[0].ForeignKeys)
}

func TestReadSchema_SQLiteDanglingImplicitReference(t *testing.T) {
	d := openTestDriver(t, `CREATE TABLE orphan (ref INTEGER REFERENCES missing)`)

	_, err := reader.New(nil).ReadSchema(context.Background(), d, "main", "1")
	require.Error(t, err)
	assert.True(t, errs.IsInconsistent(err))
}

func TestConnect_Independent(t *testing.T) {
	d := openTestDriver(t, fixture...)

	first, err := d.Connect(context.Background())
	require.NoError(t, err)
	second, err := d.Connect(context.Background())
	require.NoError(t, err)

	a, err := first.ListTables(context.Background(), "main")
	require.NoError(t, err)
	b, err := second.ListTables(context.Background(), "main")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, errs.ErrKindTimeout},
		{"perm", sqlite3.Error{Code: sqlite3.ErrPerm}, errs.ErrKindPermissionDenied},
		{"not a db", sqlite3.Error{Code: sqlite3.ErrNotADB}, errs.ErrKindConnectionFailed},
		{"syntax", sqlite3.Error{Code: sqlite3.ErrError}, errs.ErrKindQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapError(tt.err, "op").Kind)
		})
	}
}
