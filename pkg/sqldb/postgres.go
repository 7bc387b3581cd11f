package sqldb

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	// Register the pgx driver with database/sql as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is the dialect for PostgreSQL through pgx. Tables are looked up in
// current_schema() only.
type Postgres struct{}

func (Postgres) Name() string       { return DriverPostgres }
func (Postgres) DriverName() string { return "pgx" }

func (Postgres) DSN(cfg Config) (string, error) {
	if cfg.ConnString == "" {
		return "", errors.New("sqldb: postgres connString is required")
	}
	return cfg.ConnString, nil
}

func (Postgres) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (Postgres) QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (Postgres) ListTablesSQL() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'`
}

func (Postgres) TableExistsSQL() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' AND table_name = $1`
}

func (Postgres) ColumnsSQL() string {
	return `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`
}

func (Postgres) EngineMessage(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Message, true
	}
	return "", false
}
