// Package secrets defines the unified interface for secret-backed
// key/value storage.
//
// All providers (local file, MinIO, …) implement the Store interface.
// Callers depend only on this package — never on a specific provider
// package. The permission layer persists its trust decisions here; the
// profile store keeps connection passwords here.
//
// Usage:
//
//	cfg := secrets.DefaultConfig(".connshare/secrets.json")
//	store, err := file.New(cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	val, ok, err := store.Get(ctx, "connshare.permissions")
package secrets

import "context"

// Store is the single interface all secret storage providers must implement.
// Values are opaque strings; callers do their own encoding.
type Store interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set writes value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the value under key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Close releases any held resources.
	Close() error
}

// Provider identifies the secret storage backend.
type Provider string

const (
	ProviderFile  Provider = "file"
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to open a secret store.
type Config struct {
	// Provider is the storage backend (e.g. ProviderFile).
	Provider Provider `yaml:"provider"`

	// Path is the secrets file location (file provider only).
	Path string `yaml:"path"`

	// Endpoint is the host:port of the object storage server (minio provider).
	Endpoint string `yaml:"endpoint"`

	// AccessKey / SecretKey are the object storage credentials.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool `yaml:"use_ssl"`

	// Bucket is the bucket holding secret objects (minio provider).
	Bucket string `yaml:"bucket"`
}

// DefaultConfig returns a local file-backed config.
func DefaultConfig(path string) *Config {
	return &Config{
		Provider: ProviderFile,
		Path:     path,
	}
}
