// Package bootstrap creates the starter schema: users, orders (referencing
// users) and products, each with an auto-incrementing integer id.
//
// Every table is its own goose migration and runs in its own transaction, so
// each is committed independently. Versioning is disabled: the statements are
// CREATE TABLE IF NOT EXISTS, running them again is a no-op, and no goose
// bookkeeping table is left behind to show up in table listings.
package bootstrap

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Tables lists the starter tables in creation order.
var Tables = []string{"users", "orders", "products"}

// Options tune a bootstrap run.
type Options struct {
	// Wait keeps retrying the initial connection with exponential backoff for
	// up to this long. Zero means a single attempt.
	Wait   time.Duration
	Logger *zap.Logger
}

// Run opens the database behind p and applies the starter schema.
func Run(ctx context.Context, p *sqldb.Provider, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := open(ctx, p, opts.Wait, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return Apply(ctx, db, p.Dialect(), logger)
}

// Apply runs the starter schema migrations for dialect d against db.
func Apply(ctx context.Context, db *sql.DB, d sqldb.Dialect, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	gooseDialect, dir, err := migrationsFor(d)
	if err != nil {
		return err
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("bootstrap: migrations dir %s: %w", dir, err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, fsys, goose.WithDisableVersioning(true))
	if err != nil {
		return fmt.Errorf("bootstrap: goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: apply: %w", err)
	}
	for _, r := range results {
		logger.Info("schema applied",
			zap.String("dialect", d.Name()),
			zap.String("migration", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}

func migrationsFor(d sqldb.Dialect) (goose.Dialect, string, error) {
	switch d.Name() {
	case sqldb.DriverSQLite:
		return goose.DialectSQLite3, "migrations/sqlite", nil
	case sqldb.DriverPostgres:
		return goose.DialectPostgres, "migrations/postgres", nil
	default:
		return "", "", fmt.Errorf("bootstrap: no starter schema for dialect %q", d.Name())
	}
}

func open(ctx context.Context, p *sqldb.Provider, wait time.Duration, logger *zap.Logger) (*sql.DB, error) {
	if wait <= 0 {
		return p.OpenDB(ctx)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = wait

	var db *sql.DB
	op := func() error {
		var err error
		db, err = p.OpenDB(ctx)
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("database not ready", zap.Error(err), zap.Duration("retry_in", next))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("bootstrap: database not reachable within %s: %w", wait, err)
	}
	return db, nil
}
