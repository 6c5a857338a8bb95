package notebook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/koustreak/connshare/internal/sharing"
)

// Command names for the notebook surface.
const (
	CmdEnsureConnection   = sharing.Namespace + ".notebook.ensureConnection"
	CmdExecuteQuery       = sharing.Namespace + ".notebook.executeQuery"
	CmdListDatabases      = sharing.Namespace + ".notebook.listDatabases"
	CmdChangeDatabase     = sharing.Namespace + ".notebook.changeDatabase"
	CmdCancelExecution    = sharing.Namespace + ".notebook.cancelExecution"
	CmdGetCurrentDatabase = sharing.Namespace + ".notebook.getCurrentDatabase"
	CmdDisconnect         = sharing.Namespace + ".notebook.disconnect"
)

type queryArgs struct {
	Query string `json:"query"`
}

type databaseArgs struct {
	Database string `json:"database"`
}

// Commands builds the notebook command table in the same shape as the
// sharing registry, so both merge into one dispatch map.
func (m *Manager) Commands() map[string]sharing.Handler {
	return map[string]sharing.Handler{
		CmdEnsureConnection: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return m.EnsureConnection(ctx)
		},
		CmdExecuteQuery: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a queryArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return m.ExecuteQuery(ctx, a.Query)
		},
		CmdListDatabases: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return m.ListDatabases(ctx)
		},
		CmdChangeDatabase: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a databaseArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return nil, m.ChangeDatabase(ctx, a.Database)
		},
		CmdCancelExecution: func(ctx context.Context, _ json.RawMessage) (any, error) {
			m.CancelExecution(ctx)
			return nil, nil
		},
		CmdGetCurrentDatabase: func(_ context.Context, _ json.RawMessage) (any, error) {
			return m.GetCurrentDatabase(), nil
		},
		CmdDisconnect: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, m.Disconnect(ctx)
		},
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid command arguments: %w", err)
	}
	return nil
}
