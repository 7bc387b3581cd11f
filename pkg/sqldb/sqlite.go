package sqldb

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
)

// SQLite is the dialect for a single modernc.org/sqlite database file.
type SQLite struct{}

func (SQLite) Name() string       { return DriverSQLite }
func (SQLite) DriverName() string { return "sqlite" }

// DSN returns a file: URI carrying the busy timeout and foreign key pragmas.
// The file is created on first connect if it does not exist.
func (SQLite) DSN(cfg Config) (string, error) {
	if cfg.Path == "" {
		return "", errors.New("sqldb: sqlite path is required")
	}
	params := url.Values{}
	if cfg.BusyTimeout > 0 {
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	}
	if cfg.ForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}

	dsn := cfg.Path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if len(params) == 0 {
		return dsn, nil
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode(), nil
}

func (SQLite) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (SQLite) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Every sqlite_ name is reserved for the engine, sqlite_sequence (the
// AUTOINCREMENT tracker) included.
const sqliteUserTables = `type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`

func (SQLite) ListTablesSQL() string {
	return `SELECT name FROM sqlite_master WHERE ` + sqliteUserTables
}

func (SQLite) TableExistsSQL() string {
	return `SELECT name FROM sqlite_master WHERE ` + sqliteUserTables + ` AND name = ?`
}

func (SQLite) ColumnsSQL() string {
	return `SELECT name FROM pragma_table_info(?) ORDER BY cid`
}

// sqliteErrorText extracts sqlite3_errmsg from the driver's
// "<code name>: <message> (<code>)" form.
var sqliteErrorText = regexp.MustCompile(`^(?:[^:]+: )?(.+?) \(\d+\)(?: \(SQLITE_BUSY\))?$`)

func (SQLite) EngineMessage(err error) (string, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		msg := se.Error()
		if m := sqliteErrorText.FindStringSubmatch(msg); m != nil {
			msg = m[1]
		}
		return msg, true
	}
	return "", false
}
