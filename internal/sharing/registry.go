package sharing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/koustreak/connshare/internal/scripting"
)

// Namespace prefixes every registered command name.
const Namespace = "connshare"

// Command names. These strings are the public API surface: third-party
// extensions bind to them by name, so the set must stay stable.
const (
	CmdGetActiveEditorConnectionID = Namespace + ".connectionSharing.getActiveEditorConnectionId"
	CmdGetActiveDatabase           = Namespace + ".connectionSharing.getActiveDatabase"
	CmdGetDatabaseForConnectionID  = Namespace + ".connectionSharing.getDatabaseForConnectionId"
	CmdConnect                     = Namespace + ".connectionSharing.connect"
	CmdDisconnect                  = Namespace + ".connectionSharing.disconnect"
	CmdIsConnected                 = Namespace + ".connectionSharing.isConnected"
	CmdExecuteSimpleQuery          = Namespace + ".connectionSharing.executeSimpleQuery"
	CmdGetServerInfo               = Namespace + ".connectionSharing.getServerInfo"
	CmdListDatabases               = Namespace + ".connectionSharing.listDatabases"
	CmdScriptObject                = Namespace + ".connectionSharing.scriptObject"
	CmdGetConnectionString         = Namespace + ".connectionSharing.getConnectionString"
	CmdEditPermissions             = Namespace + ".connectionSharing.editPermissions"
	CmdClearAllPermissions         = Namespace + ".connectionSharing.clearAllPermissions"
)

// Handler executes one registered command with JSON-encoded arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Argument shapes. Field names are part of the wire contract.
type identityArgs struct {
	ExtensionID string `json:"extensionId"`
}

type connectArgs struct {
	ExtensionID  string `json:"extensionId"`
	ConnectionID string `json:"connectionId"`
	Database     string `json:"database,omitempty"`
}

type uriArgs struct {
	URI string `json:"uri"`
}

type queryArgs struct {
	URI   string `json:"uri"`
	Query string `json:"query"`
}

type scriptArgs struct {
	URI       string              `json:"uri"`
	Operation scripting.Operation `json:"operation"`
	Object    scripting.ObjectRef `json:"object"`
}

type connectionIDArgs struct {
	ExtensionID  string `json:"extensionId"`
	ConnectionID string `json:"connectionId"`
}

// Commands builds the string-keyed dispatch table over the gateway. The
// returned map is freshly allocated; callers may merge it into a larger
// command registry.
func (g *Gateway) Commands() map[string]Handler {
	return map[string]Handler{
		CmdGetActiveEditorConnectionID: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a identityArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.GetActiveEditorConnectionID(ctx, a.ExtensionID)
		},
		CmdGetActiveDatabase: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a identityArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.GetActiveDatabase(ctx, a.ExtensionID)
		},
		CmdGetDatabaseForConnectionID: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a connectionIDArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.GetDatabaseForConnectionID(ctx, a.ExtensionID, a.ConnectionID)
		},
		CmdConnect: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a connectArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.Connect(ctx, a.ExtensionID, a.ConnectionID, a.Database)
		},
		CmdDisconnect: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a uriArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return nil, g.Disconnect(ctx, a.URI)
		},
		CmdIsConnected: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a uriArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.IsConnected(a.URI), nil
		},
		CmdExecuteSimpleQuery: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a queryArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.ExecuteSimpleQuery(ctx, a.URI, a.Query)
		},
		CmdGetServerInfo: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a uriArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.GetServerInfo(ctx, a.URI)
		},
		CmdListDatabases: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a uriArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.ListDatabases(ctx, a.URI)
		},
		CmdScriptObject: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a scriptArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.ScriptObject(ctx, a.URI, a.Operation, a.Object)
		},
		CmdGetConnectionString: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a connectionIDArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.GetConnectionString(ctx, a.ExtensionID, a.ConnectionID)
		},
		CmdEditPermissions: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a identityArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return g.EditPermissions(ctx, a.ExtensionID)
		},
		CmdClearAllPermissions: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, g.ClearAllPermissions(ctx)
		},
	}
}

// decode unmarshals raw into v; empty argument bodies decode zero values.
func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid command arguments: %w", err)
	}
	return nil
}
