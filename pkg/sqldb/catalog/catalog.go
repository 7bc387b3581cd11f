// Package catalog reads table and column metadata from the database catalog at
// request time. Nothing is cached: every call reflects the current schema.
package catalog

import (
	"context"
	"fmt"

	"github.com/edgeflare/tablegate/pkg/sqldb"
)

// ListTables returns user table names in the order the catalog yields them.
// Engine bookkeeping tables are excluded.
func ListTables(ctx context.Context, conn sqldb.Conn, d sqldb.Dialect) ([]string, error) {
	names, err := queryStrings(ctx, conn, d.ListTablesSQL())
	if err != nil {
		return nil, fmt.Errorf("catalog: list tables: %w", err)
	}
	return names, nil
}

// TableExists reports whether name is a user table.
func TableExists(ctx context.Context, conn sqldb.Conn, d sqldb.Dialect, name string) (bool, error) {
	rows, err := conn.QueryContext(ctx, d.TableExistsSQL(), name)
	if err != nil {
		return false, fmt.Errorf("catalog: table exists %s: %w", name, err)
	}
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("catalog: table exists %s: %w", name, err)
	}
	return found, nil
}

// Columns returns the column names of table in physical order.
func Columns(ctx context.Context, conn sqldb.Conn, d sqldb.Dialect, table string) ([]string, error) {
	cols, err := queryStrings(ctx, conn, d.ColumnsSQL(), table)
	if err != nil {
		return nil, fmt.Errorf("catalog: columns %s: %w", table, err)
	}
	return cols, nil
}

func queryStrings(ctx context.Context, conn sqldb.Conn, query string, args ...any) ([]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
