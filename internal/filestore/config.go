package filestore

import "github.com/koustreak/schemapub/internal/errs"

// Provider identifies the object storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config describes how to reach the bucket store that archives published
// documents.
type Config struct {
	Provider Provider

	// Endpoint is host:port, without scheme. "localhost:9000" for a local MinIO.
	Endpoint string

	AccessKey string
	SecretKey string
	UseSSL    bool

	// Region matters for S3; MinIO ignores it.
	Region string
}

// DefaultConfig returns a plain-HTTP MinIO config.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}
}

// Validate reports a config no driver can connect with.
func (c *Config) Validate() error {
	if c.Provider != ProviderMinIO {
		return errs.Newf(errs.ErrKindInvalidInput, "unsupported file store provider %q", c.Provider)
	}
	if c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "file store endpoint is required")
	}
	return nil
}
