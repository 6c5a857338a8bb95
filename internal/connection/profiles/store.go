// Package profiles persists connection profiles in a local SQLite database.
//
// Passwords never touch the profile database: they are kept in the secret
// store under a per-profile key and joined back in on read.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/secrets"
)

// Store is a SQLite-backed connection-profile store.
type Store struct {
	db      *sql.DB
	secrets secrets.Store
	log     *logger.Logger
}

// New opens (creating if needed) the profile database at dbPath.
func New(dbPath string, sec secrets.Store) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("profile db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create profile db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db, secrets: sec, log: logger.Component("profiles")}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS connection_profiles (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		driver     TEXT NOT NULL,
		server     TEXT NOT NULL,
		port       INTEGER NOT NULL DEFAULT 0,
		db_name    TEXT NOT NULL DEFAULT '',
		db_user    TEXT NOT NULL DEFAULT '',
		ssl_mode   TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// GetConnections returns all stored profiles, passwords included.
func (s *Store) GetConnections(ctx context.Context) ([]connection.Profile, error) {
	const q = `
		SELECT id, name, driver, server, port, db_name, db_user, ssl_mode
		FROM connection_profiles
		ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []connection.Profile
	for rows.Next() {
		var p connection.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Driver, &p.Server, &p.Port,
			&p.Database, &p.User, &p.SSLMode); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if err := s.attachPassword(ctx, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetConnection returns the profile with the given id.
// ok is false when no such profile exists.
func (s *Store) GetConnection(ctx context.Context, id string) (connection.Profile, bool, error) {
	const q = `
		SELECT id, name, driver, server, port, db_name, db_user, ssl_mode
		FROM connection_profiles
		WHERE id = ?`

	var p connection.Profile
	err := s.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Driver,
		&p.Server, &p.Port, &p.Database, &p.User, &p.SSLMode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return connection.Profile{}, false, nil
		}
		return connection.Profile{}, false, fmt.Errorf("load profile %s: %w", id, err)
	}
	if err := s.attachPassword(ctx, &p); err != nil {
		return connection.Profile{}, false, err
	}
	return p, true, nil
}

// Save inserts or updates a profile. The password goes to the secret store.
func (s *Store) Save(ctx context.Context, p connection.Profile) error {
	if p.ID == "" {
		return fmt.Errorf("profile id is empty")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	const q = `
		INSERT INTO connection_profiles
			(id, name, driver, server, port, db_name, db_user, ssl_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, driver = excluded.driver, server = excluded.server,
			port = excluded.port, db_name = excluded.db_name, db_user = excluded.db_user,
			ssl_mode = excluded.ssl_mode, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, q, p.ID, p.Name, p.Driver, p.Server,
		p.Port, p.Database, p.User, p.SSLMode, now, now); err != nil {
		return fmt.Errorf("save profile %s: %w", p.ID, err)
	}

	if p.Password != "" {
		if err := s.secrets.Set(ctx, passwordKey(p.ID), p.Password); err != nil {
			return fmt.Errorf("store password for profile %s: %w", p.ID, err)
		}
	}
	return nil
}

// Delete removes a profile and its stored password.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM connection_profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	if err := s.secrets.Delete(ctx, passwordKey(id)); err != nil {
		// The profile row is already gone; an orphaned secret is harmless.
		s.log.Warnf("delete password for profile %s: %v", id, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) attachPassword(ctx context.Context, p *connection.Profile) error {
	pw, ok, err := s.secrets.Get(ctx, passwordKey(p.ID))
	if err != nil {
		return fmt.Errorf("load password for profile %s: %w", p.ID, err)
	}
	if ok {
		p.Password = pw
	}
	return nil
}

func passwordKey(id string) string {
	return "connshare.profile." + id + ".password"
}
