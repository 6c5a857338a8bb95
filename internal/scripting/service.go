// Package scripting generates SQL scripts for database objects reachable
// through a live connection. It is the scripting collaborator consumed by
// the sharing gateway's scriptObject operation.
package scripting

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/logger"
)

// Operation selects which script to generate for an object.
type Operation string

const (
	OpSelect Operation = "Select"
	OpCreate Operation = "Create"
	OpDrop   Operation = "Drop"
	OpDelete Operation = "Delete"
)

// ObjectRef names a database object. An empty schema means the connection's
// default schema.
type ObjectRef struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

// Scripter is the script-generation capability.
type Scripter interface {
	Script(ctx context.Context, uri string, op Operation, ref ObjectRef) (string, error)
}

// Source is the slice of the connection manager the service needs.
type Source interface {
	InfoFromURI(uri string) (connection.Profile, bool)
	Columns(ctx context.Context, uri, schema, table string) ([]connection.ColumnInfo, error)
}

// Service generates scripts from introspected table metadata.
type Service struct {
	conns Source
	log   *logger.Logger
}

// NewService returns a Service reading metadata through conns.
func NewService(conns Source) *Service {
	return &Service{conns: conns, log: logger.Component("scripting")}
}

// selectRowLimit caps generated SELECT scripts; the script is a starting
// point for a human, not a data export.
const selectRowLimit = 100

// Script implements Scripter.
func (s *Service) Script(ctx context.Context, uri string, op Operation, ref ObjectRef) (string, error) {
	if ref.Name == "" {
		return "", fmt.Errorf("object name is empty")
	}

	p, ok := s.conns.InfoFromURI(uri)
	if !ok {
		return "", fmt.Errorf("no profile for connection URI")
	}
	d := dialectFor(p.Driver)

	switch op {
	case OpDrop:
		return fmt.Sprintf("DROP TABLE %s;", qualified(d, ref.Schema, ref.Name)), nil
	case OpSelect, OpCreate, OpDelete:
		cols, err := s.conns.Columns(ctx, uri, ref.Schema, ref.Name)
		if err != nil {
			return "", err
		}
		if len(cols) == 0 {
			return "", fmt.Errorf("table %s does not exist or has no columns", ref.Name)
		}
		switch op {
		case OpSelect:
			return scriptSelect(d, ref, cols), nil
		case OpCreate:
			return scriptCreate(d, ref, cols), nil
		default:
			return scriptDelete(d, ref, cols), nil
		}
	default:
		return "", fmt.Errorf("unsupported scripting operation %q", op)
	}
}

func scriptSelect(d Dialect, ref ObjectRef, cols []connection.ColumnInfo) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return fmt.Sprintf("SELECT %s\nFROM %s\nLIMIT %d;",
		columnList(d, names), qualified(d, ref.Schema, ref.Name), selectRowLimit)
}

func scriptCreate(d Dialect, ref ObjectRef, cols []connection.ColumnInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE %s (\n", qualified(d, ref.Schema, ref.Name))

	pk := collectPK(cols)
	for i, c := range cols {
		fmt.Fprintf(&sb, "    %s %s", quoteIdent(d, c.Name), renderType(c))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if c.Default != nil {
			fmt.Fprintf(&sb, " DEFAULT %s", *c.Default)
		}
		if i < len(cols)-1 || len(pk) > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	if len(pk) > 0 {
		quoted := make([]string, len(pk))
		for i, name := range pk {
			quoted[i] = quoteIdent(d, name)
		}
		fmt.Fprintf(&sb, "    PRIMARY KEY (%s)\n", strings.Join(quoted, ", "))
	}
	sb.WriteString(");")
	return sb.String()
}

func scriptDelete(d Dialect, ref ObjectRef, cols []connection.ColumnInfo) string {
	pk := collectPK(cols)
	where := "<condition>"
	if len(pk) > 0 {
		parts := make([]string, len(pk))
		for i, name := range pk {
			parts[i] = quoteIdent(d, name) + " = ?"
		}
		where = strings.Join(parts, " AND ")
	}
	return fmt.Sprintf("DELETE FROM %s\nWHERE %s;", qualified(d, ref.Schema, ref.Name), where)
}

func renderType(c connection.ColumnInfo) string {
	t := strings.ToUpper(c.DataType)
	if c.MaxLength != nil && *c.MaxLength > 0 {
		return fmt.Sprintf("%s(%d)", t, *c.MaxLength)
	}
	return t
}

func collectPK(cols []connection.ColumnInfo) []string {
	var pk []string
	for _, c := range cols {
		if c.IsPrimary {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

func dialectFor(d connection.Driver) Dialect {
	if d == connection.DriverMySQL {
		return DialectMySQL
	}
	return DialectPostgres
}
