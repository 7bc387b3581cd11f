// Package dbtest provides throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/edgeflare/tablegate/pkg/sqldb/bootstrap"
	"github.com/stretchr/testify/require"
)

// Empty returns a provider for a new, empty database file under t.TempDir.
func Empty(t testing.TB) *sqldb.Provider {
	t.Helper()
	cfg := sqldb.DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "test.db")
	p, err := sqldb.NewProvider(cfg)
	require.NoError(t, err)
	return p
}

// Starter returns a provider for a new database with the users, orders and
// products tables already created.
func Starter(t testing.TB) *sqldb.Provider {
	t.Helper()
	p := Empty(t)
	require.NoError(t, bootstrap.Run(context.Background(), p, bootstrap.Options{}))
	return p
}

// Exec runs each statement on its own session.
func Exec(t testing.TB, p *sqldb.Provider, stmts ...string) {
	t.Helper()
	ctx := context.Background()
	sess, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer sess.Close()

	for _, stmt := range stmts {
		_, err := sess.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
}

// Count returns the number of rows in table.
func Count(t testing.TB, p *sqldb.Provider, table string) int {
	t.Helper()
	ctx := context.Background()
	sess, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer sess.Close()

	var n int
	require.NoError(t, sess.QueryRowContext(ctx, "SELECT count(*) FROM "+p.Dialect().QuoteIdent(table)).Scan(&n))
	return n
}
