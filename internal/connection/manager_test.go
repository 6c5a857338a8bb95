package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/connshare/internal/errs"
)

// fakeSession records calls and serves canned results.
type fakeSession struct {
	closed    bool
	queryErr  error
	result    *ResultSet
	databases []string
	lastSQL   string
	queryCtx  context.Context
}

func (f *fakeSession) Ping(context.Context) error { return nil }
func (f *fakeSession) Close()                     { f.closed = true }

func (f *fakeSession) Query(ctx context.Context, sql string) (*ResultSet, error) {
	f.lastSQL = sql
	f.queryCtx = ctx
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ResultSet{}, nil
}

func (f *fakeSession) ListDatabases(context.Context) ([]string, error) {
	return f.databases, nil
}

func (f *fakeSession) ServerInfo(context.Context) (ServerInfo, error) {
	return ServerInfo{Version: "17.0", Edition: "PostgreSQL"}, nil
}

func (f *fakeSession) Columns(context.Context, string, string) ([]ColumnInfo, error) {
	return nil, nil
}

func newManager(sess *fakeSession, openErr error) *SessionManager {
	m := NewSessionManager()
	m.Register(DriverPostgres, func(context.Context, Profile, ConnectOptions) (Session, error) {
		if openErr != nil {
			return nil, openErr
		}
		return sess, nil
	})
	return m
}

func TestConnectAndDisconnect(t *testing.T) {
	sess := &fakeSession{}
	m := newManager(sess, nil)
	ctx := context.Background()
	p := Profile{ID: "conn-1", Driver: DriverPostgres, Server: "db1", Database: "sales"}

	ok, err := m.Connect(ctx, "uri-1", p, ConnectOptions{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, m.IsConnected("uri-1"))

	got, found := m.InfoFromURI("uri-1")
	assert.True(t, found)
	assert.Equal(t, "sales", got.Database)

	require.NoError(t, m.Disconnect(ctx, "uri-1"))
	assert.False(t, m.IsConnected("uri-1"))
	assert.True(t, sess.closed)
}

func TestConnectFailure(t *testing.T) {
	m := newManager(nil, errors.New("dial tcp: refused"))

	ok, err := m.Connect(context.Background(), "uri-1",
		Profile{Driver: DriverPostgres}, ConnectOptions{})
	assert.False(t, ok)
	assert.Error(t, err)
	assert.False(t, m.IsConnected("uri-1"))
}

func TestConnectUnsupportedDriver(t *testing.T) {
	m := NewSessionManager()

	ok, err := m.Connect(context.Background(), "uri-1",
		Profile{Driver: Driver("oracle")}, ConnectOptions{})
	assert.False(t, ok)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestConnectRejectsURIReuse(t *testing.T) {
	m := newManager(&fakeSession{}, nil)
	ctx := context.Background()
	p := Profile{Driver: DriverPostgres}

	_, err := m.Connect(ctx, "uri-1", p, ConnectOptions{})
	require.NoError(t, err)

	ok, err := m.Connect(ctx, "uri-1", p, ConnectOptions{})
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestDisconnectUnknownURIIsNoOp(t *testing.T) {
	m := NewSessionManager()
	assert.NoError(t, m.Disconnect(context.Background(), "never-connected"))
}

func TestQueryOnUnknownURI(t *testing.T) {
	m := NewSessionManager()

	_, err := m.Query(context.Background(), "unknown", "SELECT 1")
	assert.True(t, errs.IsNoActiveConnection(err))
}

func TestQueryDelegatesToSession(t *testing.T) {
	sess := &fakeSession{result: &ResultSet{
		Columns: []string{"db"},
		Rows:    [][]any{{"sales"}},
	}}
	m := newManager(sess, nil)
	ctx := context.Background()

	_, err := m.Connect(ctx, "uri-1", Profile{Driver: DriverPostgres}, ConnectOptions{})
	require.NoError(t, err)

	rs, err := m.Query(ctx, "uri-1", "SELECT current_database()")
	require.NoError(t, err)
	assert.Equal(t, "SELECT current_database()", sess.lastSQL)

	val, ok := rs.Scalar()
	assert.True(t, ok)
	assert.Equal(t, "sales", val)
}

func TestCancelQueryAbortsContext(t *testing.T) {
	sess := &fakeSession{}
	m := newManager(sess, nil)
	ctx := context.Background()

	_, err := m.Connect(ctx, "uri-1", Profile{Driver: DriverPostgres}, ConnectOptions{})
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan error, 1)
	sess.queryErr = nil

	blocking := &blockingSession{started: started}
	m.mu.Lock()
	m.live["uri-1"].session = blocking
	m.mu.Unlock()

	go func() {
		_, qerr := m.Query(ctx, "uri-1", "SELECT pg_sleep(60)")
		done <- qerr
	}()

	<-started
	require.NoError(t, m.CancelQuery("uri-1"))
	assert.Error(t, <-done)
}

func TestCancelQueryUnknownURI(t *testing.T) {
	m := NewSessionManager()
	assert.True(t, errs.IsNoActiveConnection(m.CancelQuery("unknown")))
}

// blockingSession blocks Query until its context is canceled.
type blockingSession struct {
	fakeSession
	started chan struct{}
}

func (b *blockingSession) Query(ctx context.Context, _ string) (*ResultSet, error) {
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScalar(t *testing.T) {
	tests := []struct {
		name string
		rs   *ResultSet
		want string
		ok   bool
	}{
		{name: "nil result", rs: nil, ok: false},
		{name: "empty result", rs: &ResultSet{}, ok: false},
		{name: "string cell", rs: &ResultSet{Rows: [][]any{{"master"}}}, want: "master", ok: true},
		{name: "bytes cell", rs: &ResultSet{Rows: [][]any{{[]byte("TestDB")}}}, want: "TestDB", ok: true},
		{name: "null cell", rs: &ResultSet{Rows: [][]any{{nil}}}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rs.Scalar()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
