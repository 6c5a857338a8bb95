// Package connection manages live database sessions keyed by opaque
// connection URIs.
//
// The Manager is the sole authority on whether a session is alive. Layers
// above this package (the sharing gateway, the notebook manager) talk only
// to the Manager interface — they never import the postgres or mysql
// session packages directly.
package connection

import (
	"time"
)

// Driver identifies the database engine.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// Profile holds everything needed to establish a connection: server,
// database, and auth. Profiles are stored by the profile store and
// referenced by their ID from the sharing API.
type Profile struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Driver   Driver `json:"driver" yaml:"driver"`
	Server   string `json:"server" yaml:"server"`
	Port     int    `json:"port" yaml:"port"`
	Database string `json:"database" yaml:"database"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"-" yaml:"password"`
	SSLMode  string `json:"sslMode,omitempty" yaml:"ssl_mode"`
}

// ConnectOptions tunes one connect attempt.
type ConnectOptions struct {
	// Timeout bounds the connect attempt. Zero means the driver default.
	Timeout time.Duration
}

// ServerInfo is version and edition metadata for a connected server.
type ServerInfo struct {
	Version string `json:"version"`
	Edition string `json:"edition"`
}

// Details is the flattened connection description used for building
// connection strings. It is derived from a Profile by CreateDetails.
type Details struct {
	Driver   Driver
	Server   string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// ResultSet is a single-batch query result.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Scalar returns the first cell of the first row rendered as a string.
// ok is false for an empty result.
func (r *ResultSet) Scalar() (string, bool) {
	if r == nil || len(r.Rows) == 0 || len(r.Rows[0]) == 0 {
		return "", false
	}
	switch v := r.Rows[0][0].(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// ColumnInfo describes one column, as used by the scripting service.
type ColumnInfo struct {
	Name      string
	DataType  string
	Nullable  bool
	Default   *string
	MaxLength *int
	IsPrimary bool
}
