package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log/slog"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// NewLoggingConnector returns a driver.Connector that traces every prepared
// statement and its arguments through the given logger at debug level. Use
// sql.OpenDB(connector); opening through the driver directly is not
// supported. A nil logger falls back to slog.Default().
func NewLoggingConnector(dsn string, logger *slog.Logger) (driver.Connector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{dsn: dsn, logger: logger}, nil
}

type loggingConnector struct {
	dsn    string
	logger *slog.Logger
}

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	underlying := &sqlite3.SQLiteDriver{}
	conn, err := underlying.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &loggingConn{conn: conn, logger: c.logger}, nil
}

func (c *loggingConnector) Driver() driver.Driver { return &loggingDriver{} }

type loggingDriver struct{}

func (d *loggingDriver) Open(name string) (driver.Conn, error) {
	return nil, fmt.Errorf("sqlite3-log: use sql.OpenDB(NewLoggingConnector(...)) instead of sql.Open")
}

type loggingConn struct {
	conn   driver.Conn
	logger *slog.Logger
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &loggingStmt{stmt: stmt, query: query, logger: c.logger}, nil
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err := prep.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &loggingStmt{stmt: stmt, query: query, logger: c.logger}, nil
	}
	return c.Prepare(query)
}

func (c *loggingConn) Close() error { return c.conn.Close() }

func (c *loggingConn) Begin() (driver.Tx, error) {
	//nolint:staticcheck // SA1019 – required when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

type loggingStmt struct {
	stmt   driver.Stmt
	query  string
	logger *slog.Logger
}

func (s *loggingStmt) Close() error  { return s.stmt.Close() }
func (s *loggingStmt) NumInput() int { return s.stmt.NumInput() }

func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.log("exec", args)
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtExecContext
	return s.stmt.Exec(args)
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	s.log("exec", namedValues(args))
	if execCtx, ok := s.stmt.(driver.StmtExecContext); ok {
		return execCtx.ExecContext(ctx, args)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtExecContext
	return s.stmt.Exec(namedValues(args))
}

func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.log("query", args)
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtQueryContext
	return s.stmt.Query(args)
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	s.log("query", namedValues(args))
	if queryCtx, ok := s.stmt.(driver.StmtQueryContext); ok {
		return queryCtx.QueryContext(ctx, args)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtQueryContext
	return s.stmt.Query(namedValues(args))
}

func (s *loggingStmt) log(kind string, args []driver.Value) {
	s.logger.Debug("sql "+kind, "query", s.query, "args", fmt.Sprintf("%v", args))
}

func namedValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}
