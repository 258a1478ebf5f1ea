package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/schemapub/internal/database"
	"github.com/koustreak/schemapub/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemapub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const fullConfig = `
application:
  name: orders-service
  version: 1.4.0
log:
  level: debug
  format: console
database:
  driver: postgres
  dsn: postgres://reader@localhost:5432/orders
  max_conns: 2
  query_timeout: 5s
archrepo:
  url: https://archrepo.example.com
  timeout: 15s
  oauth:
    token_url: https://auth.example.com/oauth/token
    client_id: schemapub
    client_secret: s3cret
    scopes: [archrepo.write]
archive:
  enabled: true
  endpoint: localhost:9000
  bucket: schemas
kafka:
  enabled: true
  brokers: [localhost:9092]
  topic: dbschemas
server:
  addr: ":9090"
`

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "orders-service", cfg.Application.Name)
	assert.Equal(t, "1.4.0", cfg.Application.Version)
	assert.True(t, cfg.PublishEnabled())
	assert.Equal(t, "data", cfg.ArchRepo.SchemaName)
	assert.Equal(t, "archrepo-client", cfg.ArchRepo.OAuth.Client)
	assert.Equal(t, 15*time.Second, cfg.ArchRepo.Timeout)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	db := cfg.DatabaseConfig()
	assert.Equal(t, database.DriverPostgres, db.Driver)
	assert.Equal(t, int32(2), db.MaxConns)
	assert.Equal(t, 5*time.Second, db.QueryTimeout)
	assert.Equal(t, 10*time.Second, db.ConnectTimeout, "unset values keep driver defaults")

	ar := cfg.ArchRepoConfig()
	assert.Equal(t, "https://archrepo.example.com", ar.URL)
	assert.Equal(t, []string{"archrepo.write"}, ar.OAuth.Scopes)

	assert.Equal(t, "schemas", cfg.Archive.Prefix)
	assert.Equal(t, "localhost:9000", cfg.FileStoreConfig().Endpoint)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaConfig().Brokers)

	lc := cfg.LoggerConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "console", lc.Format)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
application: {name: billing}
database: {driver: sqlite, dsn: /tmp/billing.db}
`))
	require.NoError(t, err)

	assert.False(t, cfg.PublishEnabled(), "no url means publishing is off")
	require.NotNil(t, cfg.ArchRepo.Enabled)
	assert.True(t, *cfg.ArchRepo.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "git.properties", cfg.Application.GitProperties)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_DisabledIgnoresURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
application: {name: billing}
database: {driver: mysql, dsn: "reader@tcp(localhost:3306)/billing"}
archrepo:
  enabled: false
  url: https://archrepo.example.com
`))
	require.NoError(t, err)
	assert.False(t, cfg.PublishEnabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCHEMAPUB_DATABASE_DSN", "postgres://override@db/orders")
	t.Setenv("SCHEMAPUB_ARCHREPO_CLIENT_SECRET", "from-env")
	t.Setenv("SCHEMAPUB_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SCHEMAPUB_ARCHREPO_ENABLED", "false")

	cfg, err := Load(writeConfig(t, fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "postgres://override@db/orders", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.ArchRepo.OAuth.ClientSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.PublishEnabled())
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("SCHEMAPUB_APPLICATION_NAME", "inventory")
	t.Setenv("SCHEMAPUB_DATABASE_DRIVER", "sqlite")
	t.Setenv("SCHEMAPUB_DATABASE_DSN", "inventory.db")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "inventory", cfg.Application.Name)
	assert.Equal(t, database.DriverSQLite, cfg.DatabaseConfig().Driver)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `database: {driver: postgres, dsn: x}`},
		{"unknown driver", `
application: {name: a}
database: {driver: oracle, dsn: x}`},
		{"missing dsn", `
application: {name: a}
database: {driver: postgres}`},
		{"url without oauth", `
application: {name: a}
database: {driver: postgres, dsn: x}
archrepo: {url: "https://archrepo.example.com"}`},
		{"archive without bucket", `
application: {name: a}
database: {driver: postgres, dsn: x}
archive: {enabled: true, endpoint: "localhost:9000"}`},
		{"kafka without brokers", `
application: {name: a}
database: {driver: postgres, dsn: x}
kafka: {enabled: true, topic: t}`},
		{"malformed yaml", `application: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}
