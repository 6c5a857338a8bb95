// Package mysql provides a MySQL connection.Session backed by database/sql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/errs"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver
)

// MySQL error numbers.
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errAccessDenied    = 1045
	errUnknownDatabase = 1049
	errBadFieldError   = 1054
	errConnRefused     = 2003
)

const (
	sessionMaxConns       = 2
	defaultConnectTimeout = 10 * time.Second
)

// Session is a MySQL implementation of connection.Session.
// It is safe for concurrent use by multiple goroutines.
type Session struct {
	db *sql.DB
}

// Open connects to MySQL using p and returns a Session. It pings the
// server before returning, so a returned Session is known-good.
func Open(ctx context.Context, p connection.Profile, opts connection.ConnectOptions) (connection.Session, error) {
	d := connection.NewDetails(p)

	mycfg := gomysql.NewConfig()
	mycfg.User = d.User
	mycfg.Passwd = d.Password
	mycfg.Net = "tcp"
	mycfg.Addr = d.Server
	if d.Port != 0 {
		mycfg.Addr = mycfg.Addr + ":" + strconv.Itoa(d.Port)
	}
	mycfg.DBName = d.Database
	mycfg.Timeout = opts.Timeout
	if mycfg.Timeout == 0 {
		mycfg.Timeout = defaultConnectTimeout
	}

	db, err := sql.Open("mysql", mycfg.FormatDSN())
	if err != nil {
		return nil, errs.Wrap(errs.CodeConnectionFailed, "invalid connection profile", err)
	}

	db.SetMaxOpenConns(sessionMaxConns)
	db.SetMaxIdleConns(1)

	s := &Session{db: db}

	pingCtx, cancel := context.WithTimeout(ctx, mycfg.Timeout)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// --- connection.Session implementation ---

func (s *Session) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

func (s *Session) Close() {
	_ = s.db.Close()
}

// Query executes one statement and materializes the full result.
func (s *Session) Query(ctx context.Context, query string) (*connection.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(err, "query failed")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mapError(err, "failed to read column names")
	}

	rs := &connection.ResultSet{Columns: cols}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapError(err, "failed to scan row")
		}
		// database/sql yields []byte for text columns; normalize to string.
		for i, v := range dest {
			if b, ok := v.([]byte); ok {
				dest[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating rows")
	}
	return rs, nil
}

func (s *Session) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SHOW DATABASES`)
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
	if err := s.db.QueryRowContext(ctx, `SELECT VERSION()`).Scan(&version); err != nil {
		return connection.ServerInfo{}, mapError(err, "failed to read server version")
	}
	return connection.ServerInfo{Version: version, Edition: "MySQL"}, nil
}

func (s *Session) Columns(ctx context.Context, schema, table string) ([]connection.ColumnInfo, error) {
	const q = `
		SELECT c.column_name,
		       c.data_type,
		       c.is_nullable = 'YES',
		       c.column_default,
		       c.character_maximum_length,
		       c.column_key = 'PRI'
		FROM information_schema.columns c
		WHERE c.table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND c.table_name   = ?
		ORDER BY c.ordinal_position`

	rows, err := s.db.QueryContext(ctx, q, schema, table)
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

// mapError converts a MySQL driver error into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.CodeQueryExecutionFailed, msg+" (canceled)", err)
	}

	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errAccessDenied, errConnRefused, errUnknownDatabase:
			return errs.Wrap(errs.CodeConnectionFailed, msg+": "+myErr.Message, err)
		case errBadFieldError:
			return errs.Wrap(errs.CodeQueryExecutionFailed, msg+": "+myErr.Message, err)
		}
		return errs.Wrap(errs.CodeQueryExecutionFailed, msg+": "+myErr.Message, err)
	}

	return errs.Wrap(errs.CodeConnectionFailed, msg, err)
}
