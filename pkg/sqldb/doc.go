// Package sqldb opens the per-request database connections used by the table
// gateway.
//
// There is no pool. Every Acquire opens a new connection to the configured
// database and the returned Session must be closed on every exit path:
//
//	sess, err := provider.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
// Two dialects are supported: "sqlite" (modernc.org/sqlite, a single database
// file) and "postgres" (pgx through database/sql). A Dialect knows how to
// quote identifiers, which placeholder style to emit and which catalog
// queries list tables and columns.
package sqldb
