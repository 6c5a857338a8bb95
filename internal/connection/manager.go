package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/koustreak/connshare/internal/errs"
	"github.com/koustreak/connshare/internal/logger"
)

// Manager is the connection-lifecycle capability consumed by the sharing
// gateway and the notebook manager. URIs are opaque tokens chosen by the
// caller; the Manager is the single authority on their liveness.
type Manager interface {
	// Connect establishes a session for uri from profile p. It returns
	// false (with a non-nil error describing the cause) when the attempt
	// fails; true on success.
	Connect(ctx context.Context, uri string, p Profile, opts ConnectOptions) (bool, error)

	// Disconnect closes the session bound to uri. Unknown URIs are a no-op.
	Disconnect(ctx context.Context, uri string) error

	// IsConnected reports whether uri is bound to a live session.
	// It never returns an error; unknown URIs are simply false.
	IsConnected(uri string) bool

	// InfoFromURI returns the profile the session was established from.
	InfoFromURI(uri string) (Profile, bool)

	// ServerInfo returns version metadata for the session's server.
	ServerInfo(ctx context.Context, uri string) (ServerInfo, error)

	// ListDatabases returns the database names visible to the session.
	ListDatabases(ctx context.Context, uri string) ([]string, error)

	// Query executes a single statement on the session.
	Query(ctx context.Context, uri, sql string) (*ResultSet, error)

	// CancelQuery cancels the in-flight query on uri, if any. Advisory:
	// the statement may still complete.
	CancelQuery(uri string) error

	// Columns describes one table on the session, for script generation.
	Columns(ctx context.Context, uri, schema, table string) ([]ColumnInfo, error)

	// CreateDetails flattens a profile into connection details.
	CreateDetails(p Profile) Details

	// ConnectionString renders details as a driver DSN. The password is
	// masked unless includePassword is set; includeAppName appends the
	// connshare application name for server-side session attribution.
	ConnectionString(d Details, includePassword, includeAppName bool) string
}

// SessionManager is the production Manager. Drivers register an Opener per
// engine; sessions are tracked in a URI-keyed map.
type SessionManager struct {
	mu      sync.RWMutex
	openers map[Driver]Opener
	live    map[string]*liveSession
	log     *logger.Logger
}

type liveSession struct {
	profile Profile
	session Session

	// cancel aborts the in-flight query, when one exists.
	qmu    sync.Mutex
	cancel context.CancelFunc
}

// NewSessionManager returns an empty manager. Register drivers before use.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		openers: map[Driver]Opener{},
		live:    map[string]*liveSession{},
		log:     logger.Component("connection"),
	}
}

// Register installs the Opener for a driver, replacing any previous one.
func (m *SessionManager) Register(d Driver, open Opener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openers[d] = open
}

func (m *SessionManager) Connect(ctx context.Context, uri string, p Profile, opts ConnectOptions) (bool, error) {
	if uri == "" {
		return false, errs.New(errs.CodeInvalidConnectionURI, "connection URI is empty")
	}

	m.mu.RLock()
	open, ok := m.openers[p.Driver]
	_, exists := m.live[uri]
	m.mu.RUnlock()

	if exists {
		return false, fmt.Errorf("connection URI %q is already in use", uri)
	}
	if !ok {
		return false, errs.Newf(errs.CodeConnectionFailed, "unsupported driver %q", p.Driver)
	}

	sess, err := open(ctx, p, opts)
	if err != nil {
		m.log.Warnf("connect to %s failed: %v", p.Server, err)
		return false, err
	}

	m.mu.Lock()
	m.live[uri] = &liveSession{profile: p, session: sess}
	m.mu.Unlock()

	m.log.Debugf("session established for %s (database %s)", p.Server, p.Database)
	return true, nil
}

func (m *SessionManager) Disconnect(_ context.Context, uri string) error {
	m.mu.Lock()
	ls, ok := m.live[uri]
	delete(m.live, uri)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	ls.abortQuery()
	ls.session.Close()
	m.log.Debugf("session %s closed", uri)
	return nil
}

func (m *SessionManager) IsConnected(uri string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.live[uri]
	return ok
}

func (m *SessionManager) InfoFromURI(uri string) (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ls, ok := m.live[uri]
	if !ok {
		return Profile{}, false
	}
	return ls.profile, true
}

func (m *SessionManager) ServerInfo(ctx context.Context, uri string) (ServerInfo, error) {
	ls, err := m.lookup(uri)
	if err != nil {
		return ServerInfo{}, err
	}
	return ls.session.ServerInfo(ctx)
}

func (m *SessionManager) ListDatabases(ctx context.Context, uri string) ([]string, error) {
	ls, err := m.lookup(uri)
	if err != nil {
		return nil, err
	}
	return ls.session.ListDatabases(ctx)
}

func (m *SessionManager) Query(ctx context.Context, uri, sql string) (*ResultSet, error) {
	ls, err := m.lookup(uri)
	if err != nil {
		return nil, err
	}

	qctx, cancel := context.WithCancel(ctx)
	ls.setCancel(cancel)
	defer func() {
		ls.setCancel(nil)
		cancel()
	}()

	return ls.session.Query(qctx, sql)
}

func (m *SessionManager) CancelQuery(uri string) error {
	ls, err := m.lookup(uri)
	if err != nil {
		return err
	}
	ls.abortQuery()
	return nil
}

func (m *SessionManager) Columns(ctx context.Context, uri, schema, table string) ([]ColumnInfo, error) {
	ls, err := m.lookup(uri)
	if err != nil {
		return nil, err
	}
	return ls.session.Columns(ctx, schema, table)
}

func (m *SessionManager) lookup(uri string) (*liveSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ls, ok := m.live[uri]
	if !ok {
		return nil, errs.New(errs.CodeNoActiveConnection, "no live session for connection URI").
			WithConnection(uri)
	}
	return ls, nil
}

func (ls *liveSession) setCancel(cancel context.CancelFunc) {
	ls.qmu.Lock()
	ls.cancel = cancel
	ls.qmu.Unlock()
}

func (ls *liveSession) abortQuery() {
	ls.qmu.Lock()
	if ls.cancel != nil {
		ls.cancel()
		ls.cancel = nil
	}
	ls.qmu.Unlock()
}
