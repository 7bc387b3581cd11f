package gateway

import (
	"regexp"

	sq "github.com/Masterminds/squirrel"
	"github.com/edgeflare/tablegate/pkg/sqldb"
)

// idColumn addresses rows for update and delete. Every table is expected to
// have it; the gateway does not check. It is emitted unquoted so a table
// without it fails with the engine's "no such column" error.
const idColumn = "id"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdentifier reports whether name may be spliced into SQL after quoting.
// It is applied on top of the catalog membership checks, never instead of them.
func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// invalidColumns returns the keys that are not columns of the table, in key
// order.
func invalidColumns(keys, columns []string) []string {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}

	var invalid []string
	for _, k := range keys {
		if _, ok := known[k]; !ok || !validIdentifier(k) {
			invalid = append(invalid, k)
		}
	}
	return invalid
}

// statements builds SQL for one table. Table and column names must already
// have passed the catalog checks; values are always bound.
type statements struct {
	d     sqldb.Dialect
	b     sq.StatementBuilderType
	table string
}

func newStatements(d sqldb.Dialect, table string) statements {
	return statements{
		d:     d,
		b:     sq.StatementBuilder.PlaceholderFormat(d.Placeholder()),
		table: d.QuoteIdent(table),
	}
}

func (s statements) quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = s.d.QuoteIdent(n)
	}
	return out
}

func (s statements) selectAll() (string, []any, error) {
	return s.b.Select("*").From(s.table).ToSql()
}

func (s statements) insert(columns []string, values []any) (string, []any, error) {
	return s.b.Insert(s.table).Columns(s.quoteAll(columns)...).Values(values...).ToSql()
}

func (s statements) update(columns []string, values []any, id int64) (string, []any, error) {
	ub := s.b.Update(s.table)
	for i, col := range columns {
		ub = ub.Set(s.d.QuoteIdent(col), values[i])
	}
	return ub.Where(idColumn+" = ?", id).ToSql()
}

func (s statements) delete(id int64) (string, []any, error) {
	return s.b.Delete(s.table).Where(idColumn+" = ?", id).ToSql()
}
