package scripting

import "strings"

// Dialect controls identifier quoting and type rendering in generated scripts.
type Dialect int

const (
	// DialectPostgres quotes identifiers with double quotes.
	DialectPostgres Dialect = iota

	// DialectMySQL quotes identifiers with backticks.
	DialectMySQL
)

// quoteIdent wraps a SQL identifier in the dialect's quoting style, safely
// handling reserved words and mixed-case names.
func quoteIdent(d Dialect, name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualified renders schema.name with proper quoting. An empty schema yields
// just the quoted name.
func qualified(d Dialect, schema, name string) string {
	if schema == "" {
		return quoteIdent(d, name)
	}
	return quoteIdent(d, schema) + "." + quoteIdent(d, name)
}

// columnList renders a comma-separated quoted column list.
func columnList(d Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(d, c)
	}
	return strings.Join(quoted, ", ")
}
