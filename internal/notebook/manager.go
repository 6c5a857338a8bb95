// Package notebook manages the single shared connection behind a SQL
// notebook: every cell in the notebook executes against one session, so
// the manager serializes connect attempts and verifies that the session
// actually landed on the database the user picked.
package notebook

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/errs"
	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/prompt"
)

const uriScheme = "connshare://notebook/"

// labelSeparator joins server and database in the status-bar label.
const labelSeparator = " : "

// QueryGateway is the query surface the manager executes cells through.
// *sharing.Gateway satisfies it.
type QueryGateway interface {
	IsConnected(uri string) bool
	ExecuteSimpleQuery(ctx context.Context, uri, query string) (*connection.ResultSet, error)
	ListDatabases(ctx context.Context, uri string) ([]string, error)
	CancelQuery(ctx context.Context, uri string) error
}

// ProfileSource lists the stored profiles offered by the connect picker.
type ProfileSource interface {
	GetConnections(ctx context.Context) ([]connection.Profile, error)
	GetConnection(ctx context.Context, id string) (connection.Profile, bool, error)
}

// IntelliSenseNotifier binds a notebook cell to a live connection so the
// language service can offer completions against the right schema.
type IntelliSenseNotifier interface {
	ConnectCell(ctx context.Context, cellURI, connectionURI string) error
}

// state is the manager's single connection. Nil when disconnected.
type state struct {
	uri     string
	profile connection.Profile
	label   string
}

// Manager owns the notebook's one connection. All methods are safe for
// concurrent use; concurrent EnsureConnection calls coalesce into a single
// prompt and a single connect attempt.
type Manager struct {
	conns    connection.Manager
	gateway  QueryGateway
	profiles ProfileSource
	prompter prompt.Prompter
	notifier IntelliSenseNotifier
	log      *logger.Logger

	mu      sync.Mutex
	current *state

	ensure singleflight.Group
}

// NewManager wires a notebook connection manager. notifier may be nil when
// no language service is attached.
func NewManager(
	conns connection.Manager,
	gateway QueryGateway,
	profiles ProfileSource,
	prompter prompt.Prompter,
	notifier IntelliSenseNotifier,
) *Manager {
	return &Manager{
		conns:    conns,
		gateway:  gateway,
		profiles: profiles,
		prompter: prompter,
		notifier: notifier,
		log:      logger.Component("notebook"),
	}
}

// EnsureConnection returns the URI of a live session, prompting the user to
// pick a profile when none exists. Concurrent callers share one attempt:
// only the first triggers the prompt, the rest wait for its outcome.
func (m *Manager) EnsureConnection(ctx context.Context) (string, error) {
	v, err, _ := m.ensure.Do("ensure", func() (any, error) {
		if uri, ok := m.liveURI(); ok {
			return uri, nil
		}
		return m.promptAndConnect(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// liveURI returns the current URI only if the session is still live; a
// stale entry (server dropped us) is cleared so the next ensure reconnects.
func (m *Manager) liveURI() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", false
	}
	if !m.gateway.IsConnected(m.current.uri) {
		m.log.Warnf("notebook session %s went away, clearing state", m.current.uri)
		m.current = nil
		return "", false
	}
	return m.current.uri, true
}

// promptAndConnect runs the profile picker and connects to the selection.
func (m *Manager) promptAndConnect(ctx context.Context) (string, error) {
	profiles, err := m.profiles.GetConnections(ctx)
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 {
		return "", errs.New(errs.CodeConnectionNotFound, "no stored connection profiles")
	}

	items := make([]string, len(profiles))
	byName := make(map[string]connection.Profile, len(profiles))
	for i, p := range profiles {
		items[i] = p.Name
		byName[p.Name] = p
	}

	selected, ok, err := m.prompter.QuickPick(ctx, "Select a connection for this notebook", items)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errs.New(errs.CodeConnectionFailed, "no connection selected")
	}

	return m.ConnectWith(ctx, byName[selected])
}

// ConnectWith establishes the notebook session from p and verifies that the
// server honored the requested database. Some servers silently land the
// session on a default database; when that happens the session is rebuilt
// once with the database pinned explicitly.
func (m *Manager) ConnectWith(ctx context.Context, p connection.Profile) (string, error) {
	uri, err := m.open(ctx, p)
	if err != nil {
		return "", err
	}

	if p.Database != "" {
		actual, verr := m.currentDatabase(ctx, uri, p.Driver)
		switch {
		case verr != nil:
			// Verification is advisory. Keep the session and assume the
			// server honored the request.
			m.log.Warnf("could not verify database for %s: %v", uri, verr)
		case actual != p.Database:
			m.log.Infof("session landed on %q instead of %q, reconnecting", actual, p.Database)
			if derr := m.conns.Disconnect(ctx, uri); derr != nil {
				m.log.Warnf("disconnect during reconnect: %v", derr)
			}
			uri, err = m.open(ctx, p)
			if err != nil {
				return "", err
			}
		}
	}

	label := p.Server
	if p.Database != "" {
		label += labelSeparator + p.Database
	}

	m.mu.Lock()
	m.current = &state{uri: uri, profile: p, label: label}
	m.mu.Unlock()

	m.log.Infof("notebook connected to %s", p.Name)
	return uri, nil
}

func (m *Manager) open(ctx context.Context, p connection.Profile) (string, error) {
	uri := uriScheme + uuid.NewString()
	ok, err := m.conns.Connect(ctx, uri, p, connection.ConnectOptions{})
	if err != nil || !ok {
		return "", errs.Wrap(errs.CodeConnectionFailed, "failed to establish notebook connection", err).
			WithConnection(p.ID)
	}
	return uri, nil
}

// currentDatabase asks the session which database it is actually on.
func (m *Manager) currentDatabase(ctx context.Context, uri string, driver connection.Driver) (string, error) {
	var q string
	switch driver {
	case connection.DriverPostgres:
		q = "SELECT current_database()"
	case connection.DriverMySQL:
		q = "SELECT DATABASE()"
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
	rs, err := m.gateway.ExecuteSimpleQuery(ctx, uri, q)
	if err != nil {
		return "", err
	}
	db, ok := rs.Scalar()
	if !ok {
		return "", fmt.Errorf("empty result from %s", q)
	}
	return db, nil
}

// ChangeDatabase reconnects the notebook session against database, keeping
// the rest of the profile.
func (m *Manager) ChangeDatabase(ctx context.Context, database string) error {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return errs.New(errs.CodeNoActiveConnection, "notebook is not connected")
	}
	p := m.current.profile
	old := m.current.uri
	m.mu.Unlock()

	p.Database = database
	if err := m.conns.Disconnect(ctx, old); err != nil {
		m.log.Warnf("disconnect %s: %v", old, err)
	}
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	_, err := m.ConnectWith(ctx, p)
	return err
}

// ExecuteQuery runs a cell's statement on the notebook session.
func (m *Manager) ExecuteQuery(ctx context.Context, query string) (*connection.ResultSet, error) {
	uri, ok := m.liveURI()
	if !ok {
		return nil, errs.New(errs.CodeNoActiveConnection, "notebook is not connected")
	}
	return m.gateway.ExecuteSimpleQuery(ctx, uri, query)
}

// ListDatabases lists the databases visible to the notebook session.
func (m *Manager) ListDatabases(ctx context.Context) ([]string, error) {
	uri, ok := m.liveURI()
	if !ok {
		return nil, errs.New(errs.CodeNoActiveConnection, "notebook is not connected")
	}
	return m.gateway.ListDatabases(ctx, uri)
}

// CancelExecution cancels the in-flight cell, if any. Best effort: a
// cancel failure is logged, never surfaced, and a disconnected notebook is
// a no-op.
func (m *Manager) CancelExecution(ctx context.Context) {
	uri, ok := m.liveURI()
	if !ok {
		return
	}
	if err := m.gateway.CancelQuery(ctx, uri); err != nil {
		m.log.Warnf("cancel query on %s: %v", uri, err)
	}
}

// ConnectCellForIntellisense binds cellURI to the notebook session for
// completions. Best effort: failures are logged and the cell still runs.
func (m *Manager) ConnectCellForIntellisense(ctx context.Context, cellURI string) {
	if m.notifier == nil {
		return
	}
	uri, ok := m.liveURI()
	if !ok {
		return
	}
	if err := m.notifier.ConnectCell(ctx, cellURI, uri); err != nil {
		m.log.Warnf("intellisense bind for %s: %v", cellURI, err)
	}
}

// GetCurrentDatabase returns the database part of the session label, or ""
// when disconnected.
func (m *Manager) GetCurrentDatabase() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	_, db, ok := strings.Cut(m.current.label, labelSeparator)
	if !ok {
		return ""
	}
	return db
}

// Label returns the status-bar label for the session, or "" when
// disconnected.
func (m *Manager) Label() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}
	return m.current.label
}

// IsConnected reports whether the notebook has a live session.
func (m *Manager) IsConnected() bool {
	_, ok := m.liveURI()
	return ok
}

// Disconnect closes the notebook session. Idempotent.
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	m.mu.Unlock()
	if cur == nil {
		return nil
	}
	return m.conns.Disconnect(ctx, cur.uri)
}

// Dispose tears the manager down on notebook close. Errors from the
// underlying disconnect are logged, not returned.
func (m *Manager) Dispose(ctx context.Context) {
	if err := m.Disconnect(ctx); err != nil {
		m.log.Warnf("dispose: %v", err)
	}
}
