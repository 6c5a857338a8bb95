package connection

import "context"

// Session is one live database connection established from a Profile.
// Implementations are safe for concurrent use by multiple goroutines.
type Session interface {
	// Ping verifies the session is still usable.
	Ping(ctx context.Context) error

	// Close releases the session's resources.
	Close()

	// Query executes a single statement and materializes the first batch.
	Query(ctx context.Context, sql string) (*ResultSet, error)

	// ListDatabases returns the database names visible to the session,
	// in server order.
	ListDatabases(ctx context.Context) ([]string, error)

	// ServerInfo returns version and edition metadata.
	ServerInfo(ctx context.Context) (ServerInfo, error)

	// Columns describes the columns of one table, for script generation.
	Columns(ctx context.Context, schema, table string) ([]ColumnInfo, error)
}

// Opener establishes a new Session from a Profile. Each driver package
// registers one with the Manager.
type Opener func(ctx context.Context, p Profile, opts ConnectOptions) (Session, error)
