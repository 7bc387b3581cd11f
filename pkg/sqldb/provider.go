package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ConnectError is returned by Acquire when the database cannot be opened.
// No statement has been issued when it is returned.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("sqldb: connect: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Provider opens one connection per Acquire. It holds no open resources
// itself and is safe for concurrent use.
type Provider struct {
	dialect Dialect
	dsn     string
}

// NewProvider validates cfg and resolves its dialect. It does not connect.
func NewProvider(cfg Config) (*Provider, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := d.DSN(cfg)
	if err != nil {
		return nil, err
	}
	return &Provider{dialect: d, dsn: dsn}, nil
}

func (p *Provider) Dialect() Dialect { return p.dialect }

// Acquire opens a new connection. The caller owns the Session and must Close
// it on every path.
func (p *Provider) Acquire(ctx context.Context) (*Session, error) {
	db, err := sql.Open(p.dialect.DriverName(), p.dsn)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, &ConnectError{Err: err}
	}
	return &Session{db: db, conn: conn}, nil
}

// Session is a single open connection. It implements Conn.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
}

func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, query, args...)
}

func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

func (s *Session) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return s.conn.BeginTx(ctx, opts)
}

// Close returns the connection and closes the underlying handle. Calling it
// more than once is harmless.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var connErr error
	if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		connErr = err
	}
	return errors.Join(connErr, s.db.Close())
}

// OpenDB opens and pings a one-connection *sql.DB for tooling that needs a
// handle rather than a Session, such as the schema bootstrap.
func (p *Provider) OpenDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(p.dialect.DriverName(), p.dsn)
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectError{Err: err}
	}
	return db, nil
}
