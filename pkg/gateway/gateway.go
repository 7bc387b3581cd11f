package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edgeflare/tablegate/pkg/metrics"
	"github.com/edgeflare/tablegate/pkg/record"
	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/edgeflare/tablegate/pkg/sqldb/catalog"
	"go.uber.org/zap"
)

const (
	opList   = "list"
	opRead   = "read"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// msgQueryError is shown to clients when a read fails; the engine error is
// only logged.
const msgQueryError = "Database query error"

// Gateway exposes table-level operations over whatever tables the database
// currently holds. Each call acquires its own connection and releases it
// before returning.
type Gateway struct {
	provider *sqldb.Provider
	logger   *zap.Logger
}

// New returns a Gateway backed by p. A nil logger disables logging.
func New(p *sqldb.Provider, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{provider: p, logger: logger.Named("gateway")}
}

// ListTables returns the names of all user tables in catalog order.
func (g *Gateway) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := g.run(ctx, opList, "", func(sess *sqldb.Session, d sqldb.Dialect) error {
		var err error
		tables, err = catalog.ListTables(ctx, sess, d)
		if err != nil {
			return errStorage(msgQueryError, err)
		}
		return nil
	})
	return tables, err
}

// ReadTable returns every row of table with fields in column order.
func (g *Gateway) ReadTable(ctx context.Context, table string) ([]*record.Record, error) {
	var out []*record.Record
	err := g.run(ctx, opRead, table, func(sess *sqldb.Session, d sqldb.Dialect) error {
		if err := g.requireTable(ctx, sess, d, table); err != nil {
			return err
		}

		query, args, err := newStatements(d, table).selectAll()
		if err != nil {
			return errStorage(msgQueryError, err)
		}
		rows, err := scanAll(ctx, sess, query, args)
		if err != nil {
			return errStorage(msgQueryError, err)
		}

		columns, err := catalog.Columns(ctx, sess, d, table)
		if err != nil {
			return errStorage(msgQueryError, err)
		}

		out = make([]*record.Record, 0, len(rows))
		for _, row := range rows {
			out = append(out, record.Zip(columns, row))
		}
		return nil
	})
	return out, err
}

// Create inserts one row built from the JSON object in body.
func (g *Gateway) Create(ctx context.Context, table string, body []byte) error {
	return g.run(ctx, opCreate, table, func(sess *sqldb.Session, d sqldb.Dialect) error {
		payload, err := g.validPayload(ctx, sess, d, table, body)
		if err != nil {
			return err
		}

		query, args, err := newStatements(d, table).insert(payload.Keys(), payload.Args())
		if err != nil {
			return errStorage(err.Error(), err)
		}
		_, err = g.exec(ctx, sess, query, args)
		return err
	})
}

// Update sets the payload's columns on the row whose id equals id. Matching
// no row is not an error.
func (g *Gateway) Update(ctx context.Context, table string, id int64, body []byte) error {
	return g.run(ctx, opUpdate, table, func(sess *sqldb.Session, d sqldb.Dialect) error {
		payload, err := g.validPayload(ctx, sess, d, table, body)
		if err != nil {
			return err
		}

		query, args, err := newStatements(d, table).update(payload.Keys(), payload.Args(), id)
		if err != nil {
			return errStorage(err.Error(), err)
		}
		n, err := g.exec(ctx, sess, query, args)
		if err != nil {
			return err
		}
		g.noteNoop(opUpdate, table, id, n)
		return nil
	})
}

// Delete removes the row whose id equals id. Matching no row is not an error.
func (g *Gateway) Delete(ctx context.Context, table string, id int64) error {
	return g.run(ctx, opDelete, table, func(sess *sqldb.Session, d sqldb.Dialect) error {
		if err := g.requireTable(ctx, sess, d, table); err != nil {
			return err
		}

		query, args, err := newStatements(d, table).delete(id)
		if err != nil {
			return errStorage(err.Error(), err)
		}
		n, err := g.exec(ctx, sess, query, args)
		if err != nil {
			return err
		}
		g.noteNoop(opDelete, table, id, n)
		return nil
	})
}

// run acquires a session, calls fn and releases the session on every path.
// Unsafe table names are rejected before any connection is opened.
func (g *Gateway) run(ctx context.Context, op, table string, fn func(*sqldb.Session, sqldb.Dialect) error) (err error) {
	start := time.Now()
	defer func() {
		g.observe(op, table, start, err)
	}()

	if op != opList && !validIdentifier(table) {
		return errTableNotFound(table)
	}

	sess, err := g.provider.Acquire(ctx)
	if err != nil {
		return errConnection(sqldb.EngineMessage(err), err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			g.logger.Warn("closing session", zap.String("operation", op), zap.Error(cerr))
		}
	}()

	return fn(sess, g.provider.Dialect())
}

func (g *Gateway) observe(op, table string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
	}
	metrics.GatewayOperations.WithLabelValues(op, outcome).Inc()
	metrics.GatewayOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err == nil {
		g.logger.Debug("operation complete", zap.String("operation", op), zap.String("table", table))
		return
	}

	fields := []zap.Field{zap.String("operation", op), zap.String("table", table), zap.String("kind", outcome)}
	if cause := errors.Unwrap(err); cause != nil {
		fields = append(fields, zap.NamedError("cause", cause))
	}
	switch KindOf(err) {
	case KindStorage, KindConnection:
		g.logger.Error(err.Error(), fields...)
	default:
		g.logger.Debug(err.Error(), fields...)
	}
}

func (g *Gateway) requireTable(ctx context.Context, sess *sqldb.Session, d sqldb.Dialect, table string) error {
	ok, err := catalog.TableExists(ctx, sess, d, table)
	if err != nil {
		return errStorage(msgQueryError, err)
	}
	if !ok {
		return errTableNotFound(table)
	}
	return nil
}

// validPayload runs the checks every write shares, in order: the table exists,
// the body is a non-empty object of scalars, and every key is a column.
func (g *Gateway) validPayload(ctx context.Context, sess *sqldb.Session, d sqldb.Dialect, table string, body []byte) (*record.Payload, error) {
	if err := g.requireTable(ctx, sess, d, table); err != nil {
		return nil, err
	}

	payload, err := record.DecodePayload(body)
	if err != nil {
		return nil, payloadError(err)
	}

	columns, err := catalog.Columns(ctx, sess, d, table)
	if err != nil {
		return nil, errStorage(msgQueryError, err)
	}
	if invalid := invalidColumns(payload.Keys(), columns); len(invalid) > 0 {
		return nil, errInvalidColumns(invalid)
	}
	return payload, nil
}

func payloadError(err error) error {
	var fe *record.FieldError
	switch {
	case errors.As(err, &fe):
		return errInvalidInput(fmt.Sprintf("Unsupported value for column '%s'", fe.Field), err)
	case errors.Is(err, record.ErrNoData):
		return errInvalidInput("No data provided", err)
	case errors.Is(err, record.ErrNotObject):
		return errInvalidInput("Payload must be a JSON object", err)
	default:
		return errInvalidInput("Invalid JSON body", err)
	}
}

// exec runs a single mutation in its own transaction and returns the number
// of rows it affected, or -1 when the driver cannot say.
func (g *Gateway) exec(ctx context.Context, sess *sqldb.Session, query string, args []any) (int64, error) {
	g.logger.Debug("exec", zap.String("sql", query), zap.Int("args", len(args)))

	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return 0, errStorage(sqldb.EngineMessage(err), err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			g.logger.Warn("rollback", zap.Error(rerr))
		}
		return 0, errStorage(sqldb.EngineMessage(err), err)
	}
	if err := tx.Commit(); err != nil {
		return 0, errStorage(sqldb.EngineMessage(err), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return -1, nil
	}
	return n, nil
}

func (g *Gateway) noteNoop(op, table string, id, affected int64) {
	if affected != 0 {
		return
	}
	metrics.NoopMutations.WithLabelValues(op, table).Inc()
	g.logger.Warn("no rows matched",
		zap.String("operation", op),
		zap.String("table", table),
		zap.Int64("id", id),
	)
}

// scanAll reads every row of the result set into driver values.
func scanAll(ctx context.Context, conn sqldb.Conn, query string, args []any) ([][]any, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}
