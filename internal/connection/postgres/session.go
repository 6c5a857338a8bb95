// Package postgres provides a PostgreSQL connection.Session backed by pgxpool.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/errs"
)

const (
	// Sessions serve interactive callers, not high-throughput workloads;
	// two pooled connections cover a query plus a metadata lookup.
	sessionMaxConns = 2

	defaultConnectTimeout = 10 * time.Second
)

// Session is a PostgreSQL implementation of connection.Session.
// It is safe for concurrent use by multiple goroutines.
type Session struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL using p and returns a Session. It pings the
// server before returning, so a returned Session is known-good.
func Open(ctx context.Context, p connection.Profile, opts connection.ConnectOptions) (connection.Session, error) {
	d := connection.NewDetails(p)

	poolCfg, err := pgxpool.ParseConfig(d.PostgresURL())
	if err != nil {
		return nil, errs.Wrap(errs.CodeConnectionFailed, "invalid connection profile", err)
	}

	poolCfg.MaxConns = sessionMaxConns
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}
	poolCfg.ConnConfig.ConnectTimeout = timeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.CodeConnectionFailed, "failed to create connection pool", err)
	}

	s := &Session{pool: pool}
	if err := s.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// --- connection.Session implementation ---

func (s *Session) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (s *Session) Close() {
	s.pool.Close()
}

// Query executes one statement and materializes the full result.
func (s *Session) Query(ctx context.Context, sql string) (*connection.ResultSet, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	descs := rows.FieldDescriptions()
	rs := &connection.ResultSet{Columns: make([]string, len(descs))}
	for i, desc := range descs {
		rs.Columns[i] = desc.Name
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, mapError(err, "failed to read row")
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating rows")
	}
	return rs, nil
}

func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	const q = `
		SELECT datname
		FROM pg_database
		WHERE datistemplate = false
		ORDER BY datname`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list databases")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan database name")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Session) ServerInfo(ctx context.Context) (connection.ServerInfo, error) {
	var version string
	if err := s.pool.QueryRow(ctx, `SELECT version()`).Scan(&version); err != nil {
		return connection.ServerInfo{}, mapError(err, "failed to read server version")
	}
	return connection.ServerInfo{Version: version, Edition: "PostgreSQL"}, nil
}

func (s *Session) Columns(ctx context.Context, schema, table string) ([]connection.ColumnInfo, error) {
	if schema == "" {
		schema = "public"
	}

	const q = `
		SELECT c.column_name,
		       c.data_type,
		       c.is_nullable = 'YES',
		       c.column_default,
		       c.character_maximum_length,
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kcu
		             ON tc.constraint_name = kcu.constraint_name
		            AND tc.table_schema    = kcu.table_schema
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_schema    = c.table_schema
		             AND tc.table_name      = c.table_name
		             AND kcu.column_name    = c.column_name
		       ) AS is_primary
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		  AND c.table_name   = $2
		ORDER BY c.ordinal_position`

	rows, err := s.pool.Query(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, "failed to fetch columns")
	}
	defer rows.Close()

	var cols []connection.ColumnInfo
	for rows.Next() {
		var c connection.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default, &c.MaxLength, &c.IsPrimary); err != nil {
			return nil, mapError(err, "failed to scan column info")
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// --- error mapping ---

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.CodeQueryExecutionFailed, msg+" (canceled)", err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.CodeQueryExecutionFailed, msg, err)
	}

	// Postgres server-side error (SQLSTATE codes); class 08 is connection.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := errs.CodeQueryExecutionFailed
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			code = errs.CodeConnectionFailed
		}
		return errs.Wrap(code, msg+": "+pgErr.Message, err)
	}

	// Fallthrough: TLS, network, auth.
	return errs.Wrap(errs.CodeConnectionFailed, msg, err)
}
