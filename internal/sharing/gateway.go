// Package sharing implements the connection-sharing gateway: the trust,
// liveness, and error-shaping boundary between a foreign extension and the
// host's live database connections.
//
// Every operation that touches a specific connection takes either the
// caller's extension identity (trust boundary) or an opaque connection URI
// (capability token). URIs are minted fresh on every connect — they are
// capability tokens, not cache keys, so two connects with the same stored
// profile never collide.
package sharing

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/errs"
	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/permission"
	"github.com/koustreak/connshare/internal/scripting"
)

// uriScheme prefixes every minted connection URI.
const uriScheme = "connshare://"

// ProfileSource is the stored-profile lookup the gateway resolves
// connection ids against.
type ProfileSource interface {
	GetConnections(ctx context.Context) ([]connection.Profile, error)
	GetConnection(ctx context.Context, id string) (connection.Profile, bool, error)
}

// ActiveEditor reports the connection bound to the focused editor.
type ActiveEditor interface {
	// ActiveConnectionID returns the bound connection id. hasEditor is
	// false when no editor has focus; a focused editor with no bound
	// connection yields ("", true).
	ActiveConnectionID() (connectionID string, hasEditor bool)
}

// Gateway is the public connection-sharing capability surface.
type Gateway struct {
	broker   *permission.Broker
	conns    connection.Manager
	profiles ProfileSource
	editor   ActiveEditor
	scripter scripting.Scripter
	log      *logger.Logger

	mu     sync.Mutex
	owners map[string]string // connection URI -> owning extension id
}

// NewGateway wires the gateway from its collaborator capabilities.
func NewGateway(
	broker *permission.Broker,
	conns connection.Manager,
	profiles ProfileSource,
	ed ActiveEditor,
	scripter scripting.Scripter,
) *Gateway {
	return &Gateway{
		broker:   broker,
		conns:    conns,
		profiles: profiles,
		editor:   ed,
		scripter: scripter,
		log:      logger.Component("sharing"),
		owners:   map[string]string{},
	}
}

// validateExtension is the trust gate in front of every identity-scoped
// operation.
func (g *Gateway) validateExtension(ctx context.Context, extensionID string) error {
	if extensionID == "" {
		return errs.New(errs.CodeExtensionNotFound, "extension id is empty")
	}
	return g.broker.Validate(ctx, extensionID)
}

// requireLive enforces the URI validation order: an empty token is
// INVALID_CONNECTION_URI, checked strictly before the liveness check that
// yields NO_ACTIVE_CONNECTION.
func (g *Gateway) requireLive(uri string) error {
	if uri == "" {
		return errs.New(errs.CodeInvalidConnectionURI, "connection URI is empty")
	}
	if !g.conns.IsConnected(uri) {
		return errs.New(errs.CodeNoActiveConnection, "connection is not active").
			WithConnection(uri)
	}
	return nil
}

// GetActiveEditorConnectionID returns the connection id bound to the
// focused editor, or "" when the editor has no bound connection.
func (g *Gateway) GetActiveEditorConnectionID(ctx context.Context, extensionID string) (string, error) {
	if err := g.validateExtension(ctx, extensionID); err != nil {
		return "", err
	}
	connID, hasEditor := g.editor.ActiveConnectionID()
	if !hasEditor {
		return "", errs.New(errs.CodeNoActiveEditor, "no editor has focus").
			WithExtension(extensionID)
	}
	return connID, nil
}

// GetActiveDatabase returns the database of the focused editor's
// connection, or "" when none is bound.
func (g *Gateway) GetActiveDatabase(ctx context.Context, extensionID string) (string, error) {
	connID, err := g.GetActiveEditorConnectionID(ctx, extensionID)
	if err != nil {
		return "", err
	}
	if connID == "" {
		return "", nil
	}
	return g.databaseFor(ctx, connID)
}

// GetDatabaseForConnectionID returns the database of a stored profile, or
// "" when the id is unknown. Only permission failures are errors here.
func (g *Gateway) GetDatabaseForConnectionID(ctx context.Context, extensionID, connectionID string) (string, error) {
	if err := g.validateExtension(ctx, extensionID); err != nil {
		return "", err
	}
	return g.databaseFor(ctx, connectionID)
}

func (g *Gateway) databaseFor(ctx context.Context, connectionID string) (string, error) {
	p, ok, err := g.profiles.GetConnection(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return p.Database, nil
}

// Connect establishes a new session from the stored profile connectionID,
// optionally overriding its database, and returns a freshly minted
// connection URI owned by extensionID.
func (g *Gateway) Connect(ctx context.Context, extensionID, connectionID, database string) (string, error) {
	if err := g.validateExtension(ctx, extensionID); err != nil {
		return "", err
	}

	p, ok, err := g.profiles.GetConnection(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errs.New(errs.CodeConnectionNotFound, "no stored profile with that connection id").
			WithExtension(extensionID).WithConnection(connectionID)
	}
	if database != "" {
		p.Database = database
	}

	uri := uriScheme + uuid.NewString()
	ok, err = g.conns.Connect(ctx, uri, p, connection.ConnectOptions{})
	if err != nil || !ok {
		return "", errs.Wrap(errs.CodeConnectionFailed, "failed to establish connection", err).
			WithExtension(extensionID).WithConnection(connectionID)
	}

	g.mu.Lock()
	g.owners[uri] = extensionID
	g.mu.Unlock()

	g.log.Infof("extension %s connected to profile %s", extensionID, connectionID)
	return uri, nil
}

// Disconnect closes the session behind uri. Fire-and-forget: failures of
// the underlying close are logged, not returned.
func (g *Gateway) Disconnect(ctx context.Context, uri string) error {
	if uri == "" {
		return errs.New(errs.CodeInvalidConnectionURI, "connection URI is empty")
	}

	g.mu.Lock()
	delete(g.owners, uri)
	g.mu.Unlock()

	if err := g.conns.Disconnect(ctx, uri); err != nil {
		g.log.Warnf("disconnect %s: %v", uri, err)
	}
	return nil
}

// IsConnected reports session liveness. It never errors: empty and unknown
// URIs are simply false.
func (g *Gateway) IsConnected(uri string) bool {
	if uri == "" {
		return false
	}
	return g.conns.IsConnected(uri)
}

// ExecuteSimpleQuery runs a single statement and returns its only batch.
func (g *Gateway) ExecuteSimpleQuery(ctx context.Context, uri, query string) (*connection.ResultSet, error) {
	if err := g.requireLive(uri); err != nil {
		return nil, err
	}
	rs, err := g.conns.Query(ctx, uri, query)
	if err != nil {
		if errs.CodeOf(err) != errs.CodeUnknown {
			return nil, err
		}
		return nil, errs.Wrap(errs.CodeQueryExecutionFailed, "query execution failed", err).
			WithConnection(uri)
	}
	return rs, nil
}

// GetServerInfo returns version metadata for the session behind uri.
func (g *Gateway) GetServerInfo(ctx context.Context, uri string) (connection.ServerInfo, error) {
	if err := g.requireLive(uri); err != nil {
		return connection.ServerInfo{}, err
	}
	return g.conns.ServerInfo(ctx, uri)
}

// ListDatabases returns the database names visible to the session.
func (g *Gateway) ListDatabases(ctx context.Context, uri string) ([]string, error) {
	if err := g.requireLive(uri); err != nil {
		return nil, err
	}
	return g.conns.ListDatabases(ctx, uri)
}

// ScriptObject generates a script for a database object on the session.
func (g *Gateway) ScriptObject(ctx context.Context, uri string, op scripting.Operation, ref scripting.ObjectRef) (string, error) {
	if err := g.requireLive(uri); err != nil {
		return "", err
	}
	return g.scripter.Script(ctx, uri, op, ref)
}

// GetConnectionString renders the stored profile as a full connection
// string, password included.
func (g *Gateway) GetConnectionString(ctx context.Context, extensionID, connectionID string) (string, error) {
	if err := g.validateExtension(ctx, extensionID); err != nil {
		return "", err
	}

	p, ok, err := g.profiles.GetConnection(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errs.New(errs.CodeConnectionNotFound, "no stored profile with that connection id").
			WithExtension(extensionID).WithConnection(connectionID)
	}

	details := g.conns.CreateDetails(p)
	return g.conns.ConnectionString(details, true, false), nil
}

// CancelQuery requests cancellation of the in-flight query on uri.
// Advisory: the statement may still complete.
func (g *Gateway) CancelQuery(_ context.Context, uri string) error {
	if err := g.requireLive(uri); err != nil {
		return err
	}
	return g.conns.CancelQuery(uri)
}

// EditPermissions runs the interactive permission editing flow. A nil
// decision with a nil error means the user canceled (or removed the entry).
func (g *Gateway) EditPermissions(ctx context.Context, extensionID string) (*permission.Decision, error) {
	return g.broker.EditPermissions(ctx, extensionID)
}

// ClearAllPermissions clears every stored decision after confirmation.
func (g *Gateway) ClearAllPermissions(ctx context.Context) error {
	return g.broker.ClearAll(ctx)
}

// ReleaseExtension disconnects every session owned by extensionID. Called
// when the extension deactivates.
func (g *Gateway) ReleaseExtension(ctx context.Context, extensionID string) {
	g.mu.Lock()
	var owned []string
	for uri, owner := range g.owners {
		if owner == extensionID {
			owned = append(owned, uri)
			delete(g.owners, uri)
		}
	}
	g.mu.Unlock()

	for _, uri := range owned {
		if err := g.conns.Disconnect(ctx, uri); err != nil {
			g.log.Warnf("release %s: %v", uri, err)
		}
	}
	if len(owned) > 0 {
		g.log.Infof("released %d session(s) owned by %s", len(owned), extensionID)
	}
}

// Owner returns the extension owning uri, for diagnostics.
func (g *Gateway) Owner(uri string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	owner, ok := g.owners[uri]
	return owner, ok
}
