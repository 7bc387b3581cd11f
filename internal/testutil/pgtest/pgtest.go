package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

// Provider returns a postgres provider for the database in TEST_DATABASE. The
// test is skipped when the variable is unset.
func Provider(t testing.TB) *sqldb.Provider {
	t.Helper()
	connString := os.Getenv("TEST_DATABASE")
	if connString == "" {
		t.Skip("TEST_DATABASE not set")
	}

	// fail early on a malformed connection string rather than on first Acquire
	_, err := pgx.ParseConfig(connString)
	require.NoError(t, err)

	p, err := sqldb.NewProvider(sqldb.Config{Driver: sqldb.DriverPostgres, ConnString: connString})
	require.NoError(t, err)
	return p
}

// DropTables removes the named tables when the test finishes.
func DropTables(t testing.TB, p *sqldb.Provider, tables ...string) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sess, err := p.Acquire(ctx)
		require.NoError(t, err)
		defer sess.Close()

		for _, table := range tables {
			_, err := sess.ExecContext(ctx, "DROP TABLE IF EXISTS "+p.Dialect().QuoteIdent(table)+" CASCADE")
			require.NoError(t, err)
		}
	})
}
