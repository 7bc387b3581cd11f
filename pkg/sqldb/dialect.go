package sqldb

import (
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and addresses the database.
type Config struct {
	Driver      string        `mapstructure:"driver"`
	Path        string        `mapstructure:"path"`        // sqlite database file
	ConnString  string        `mapstructure:"connString"`  // postgres connection string
	BusyTimeout time.Duration `mapstructure:"busyTimeout"` // sqlite lock wait
	ForeignKeys bool          `mapstructure:"foreignKeys"` // sqlite foreign key enforcement
}

// DefaultConfig matches the behaviour of a plain sqlite3 connection to
// assessment.db in the working directory.
func DefaultConfig() Config {
	return Config{
		Driver:      DriverSQLite,
		Path:        "assessment.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Dialect captures what differs between database engines.
type Dialect interface {
	// Name is the config value selecting this dialect.
	Name() string
	// DriverName is the database/sql driver to open.
	DriverName() string
	// DSN builds the data source name from cfg.
	DSN(cfg Config) (string, error)
	// Placeholder is the bind parameter style for statement builders.
	Placeholder() sq.PlaceholderFormat
	// QuoteIdent quotes a table or column name.
	QuoteIdent(name string) string
	// ListTablesSQL lists user tables in catalog order. No arguments.
	ListTablesSQL() string
	// TableExistsSQL returns a row when the table named by its single argument exists.
	TableExistsSQL() string
	// ColumnsSQL lists the column names of the table named by its single
	// argument, in physical order.
	ColumnsSQL() string
	// EngineMessage extracts the engine's own message from err.
	EngineMessage(err error) (string, bool)
}

var ErrUnknownDriver = errors.New("sqldb: unknown driver")

// DialectFor returns the Dialect registered under driver.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite, "sqlite3":
		return SQLite{}, nil
	case DriverPostgres, "postgresql", "pgx":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// EngineMessage returns the storage engine's message for err, falling back to
// err.Error() when the error did not come from a known driver.
func EngineMessage(err error) string {
	if err == nil {
		return ""
	}
	for _, d := range []Dialect{SQLite{}, Postgres{}} {
		if msg, ok := d.EngineMessage(err); ok {
			return msg
		}
	}
	return err.Error()
}
