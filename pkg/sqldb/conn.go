package sqldb

import (
	"context"
	"database/sql"
)

// Conn is the subset of database/sql shared by *sql.DB, *sql.Conn and
// *Session, so catalog and gateway code can run against any of them.
type Conn interface {
	// ExecContext executes a statement that returns no rows.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	// QueryContext executes a query that returns rows.
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	// QueryRowContext executes a query that is expected to return at most one row.
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	// BeginTx starts a transaction bound to ctx.
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
