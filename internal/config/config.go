// Package config loads the schemapub YAML configuration.
//
// Secrets and connection strings can be supplied through SCHEMAPUB_*
// environment variables, which take precedence over the file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/koustreak/schemapub/internal/database"
	"github.com/koustreak/schemapub/internal/errs"
	"github.com/koustreak/schemapub/internal/filestore"
	"github.com/koustreak/schemapub/internal/logger"
	"github.com/koustreak/schemapub/internal/publish"
)

const envPrefix = "SCHEMAPUB_"

type Config struct {
	Application ApplicationConfig `yaml:"application"`
	Log         LogConfig         `yaml:"log"`
	Database    DatabaseConfig    `yaml:"database"`
	ArchRepo    ArchRepoConfig    `yaml:"archrepo"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Server      ServerConfig      `yaml:"server"`
}

type ApplicationConfig struct {
	// Name is the system component name stamped on published documents.
	Name string `yaml:"name"`

	// Version overrides build-time version detection when set.
	Version       string `yaml:"version"`
	GitProperties string `yaml:"git_properties"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

type ArchRepoConfig struct {
	// Enabled defaults to true. Publishing also needs URL.
	Enabled    *bool         `yaml:"enabled"`
	URL        string        `yaml:"url"`
	SchemaName string        `yaml:"schema_name"`
	Timeout    time.Duration `yaml:"timeout"`
	OAuth      OAuthConfig   `yaml:"oauth"`
}

type OAuthConfig struct {
	Client       string   `yaml:"client"`
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads path, applies environment overrides and defaults, and
// validates the result. An empty path configures from the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "parse config", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}

	str("APPLICATION_NAME", &c.Application.Name)
	str("APPLICATION_VERSION", &c.Application.Version)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_DSN", &c.Database.DSN)
	str("ARCHREPO_URL", &c.ArchRepo.URL)
	str("ARCHREPO_SCHEMA_NAME", &c.ArchRepo.SchemaName)
	str("ARCHREPO_TOKEN_URL", &c.ArchRepo.OAuth.TokenURL)
	str("ARCHREPO_CLIENT_ID", &c.ArchRepo.OAuth.ClientID)
	str("ARCHREPO_CLIENT_SECRET", &c.ArchRepo.OAuth.ClientSecret)
	str("ARCHIVE_ACCESS_KEY", &c.Archive.AccessKey)
	str("ARCHIVE_SECRET_KEY", &c.Archive.SecretKey)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("SERVER_ADDR", &c.Server.Addr)

	if v, ok := lookup(envPrefix + "ARCHREPO_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ArchRepo.Enabled = &b
		}
	}
	if v, ok := lookup(envPrefix + "KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitAndTrim(v)
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Application.GitProperties == "" {
		c.Application.GitProperties = "git.properties"
	}

	if c.ArchRepo.Enabled == nil {
		enabled := true
		c.ArchRepo.Enabled = &enabled
	}
	if c.ArchRepo.SchemaName == "" {
		c.ArchRepo.SchemaName = "data"
	}
	if c.ArchRepo.Timeout == 0 {
		c.ArchRepo.Timeout = 30 * time.Second
	}
	if c.ArchRepo.OAuth.Client == "" {
		c.ArchRepo.OAuth.Client = "archrepo-client"
	}

	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "schemas"
	}
	if c.Kafka.WriteTimeout == 0 {
		c.Kafka.WriteTimeout = 10 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate reports settings schemapub cannot start from.
func (c *Config) Validate() error {
	if c.Application.Name == "" {
		return errs.New(errs.ErrKindInvalidInput, "application.name is required")
	}
	if err := c.DatabaseConfig().Validate(); err != nil {
		return err
	}

	if c.PublishEnabled() {
		oauth := c.ArchRepo.OAuth
		if oauth.TokenURL == "" || oauth.ClientID == "" {
			return errs.Newf(errs.ErrKindInvalidInput,
				"archrepo.url is set but oauth registration %q has no token_url or client_id", oauth.Client)
		}
	}
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			return errs.New(errs.ErrKindInvalidInput, "archive.endpoint is required when the archive is enabled")
		}
		if c.Archive.Bucket == "" {
			return errs.New(errs.ErrKindInvalidInput, "archive.bucket is required when the archive is enabled")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errs.New(errs.ErrKindInvalidInput, "kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return errs.New(errs.ErrKindInvalidInput, "kafka.topic is required when kafka is enabled")
		}
	}
	return nil
}

// PublishEnabled reports whether documents go to the archrepo: it must be
// enabled and have a url.
func (c *Config) PublishEnabled() bool {
	return (c.ArchRepo.Enabled == nil || *c.ArchRepo.Enabled) && c.ArchRepo.URL != ""
}

// DatabaseConfig starts from database.DefaultConfig and applies every
// non-zero setting.
func (c *Config) DatabaseConfig() *database.Config {
	d := c.Database
	cfg := database.DefaultConfig(database.Driver(strings.ToLower(d.Driver)), d.DSN)
	if d.MaxConns > 0 {
		cfg.MaxConns = d.MaxConns
	}
	if d.MinConns > 0 {
		cfg.MinConns = d.MinConns
	}
	if d.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = d.MaxConnLifetime
	}
	if d.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = d.MaxConnIdleTime
	}
	if d.ConnectTimeout > 0 {
		cfg.ConnectTimeout = d.ConnectTimeout
	}
	if d.QueryTimeout > 0 {
		cfg.QueryTimeout = d.QueryTimeout
	}
	return cfg
}

func (c *Config) LoggerConfig() *logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = c.Log.Format
	return cfg
}

func (c *Config) ArchRepoConfig() publish.ArchRepoConfig {
	a := c.ArchRepo
	return publish.ArchRepoConfig{
		URL:     a.URL,
		Timeout: a.Timeout,
		OAuth: publish.OAuthConfig{
			Client:       a.OAuth.Client,
			TokenURL:     a.OAuth.TokenURL,
			ClientID:     a.OAuth.ClientID,
			ClientSecret: a.OAuth.ClientSecret,
			Scopes:       a.OAuth.Scopes,
		},
	}
}

func (c *Config) FileStoreConfig() *filestore.Config {
	cfg := filestore.DefaultConfig(c.Archive.Endpoint, c.Archive.AccessKey, c.Archive.SecretKey)
	cfg.UseSSL = c.Archive.UseSSL
	cfg.Region = c.Archive.Region
	return cfg
}

func (c *Config) KafkaConfig() publish.KafkaConfig {
	return publish.KafkaConfig{
		Brokers:      c.Kafka.Brokers,
		Topic:        c.Kafka.Topic,
		WriteTimeout: c.Kafka.WriteTimeout,
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
