package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
)

// Driver runs compiled statements over a database/sql handle.
type Driver struct {
	Conn
}

// NewDriver creates a new Driver with the given Conn.
func NewDriver(c Conn) *Driver {
	return &Driver{Conn: c}
}

// Open wraps the database/sql.Open method. The driver name selects the
// dialect: "postgres", "mysql", "sqlite" or "sqlserver" and their aliases.
func Open(driverName, source string) (*Driver, error) {
	d, err := dialect.Lookup(driverName)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: %w", err)
	}
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(d.Name(), db), nil
}

// OpenDB wraps the given database/sql.DB with a Driver for the dialect.
func OpenDB(dialectName string, db *sql.DB) *Driver {
	return NewDriver(Conn{ExecQuerier: db, dialect: dialectName})
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (*Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{ExecQuerier: tx, dialect: d.dialect, hook: d.hook},
		tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx is a transaction statements can run in.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback aborts the transaction.
func (tx *Tx) Rollback() error { return tx.tx.Rollback() }

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Compiler is implemented by the statement builders of veloxql.
type Compiler interface {
	Compile() (*veloxql.CompiledStatement, error)
}

// Conn runs compiled statements on an ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
	hook    func(ctx context.Context, query string, args []any, took time.Duration, err error, isQuery bool)
}

// Dialect returns the dialect name statements are rebound for.
func (c Conn) Dialect() string { return c.dialect }

// Exec runs a DML statement. Batches run one statement at a time and,
// unless c is a transaction, inside a transaction of their own.
func (c Conn) Exec(ctx context.Context, stmt *veloxql.CompiledStatement) (Result, error) {
	stmts := split(lex(c.dialect, stmt.SQL))
	if len(stmts) == 0 {
		return nil, errors.New("dialect/sql: exec: empty statement")
	}
	db, ok := c.ExecQuerier.(*sql.DB)
	if len(stmts) == 1 || !ok {
		return c.execAll(ctx, stmts, stmt.Parameters)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: begin: %w", err)
	}
	res, err := Conn{ExecQuerier: tx, dialect: c.dialect, hook: c.hook}.execAll(ctx, stmts, stmt.Parameters)
	if err != nil {
		return nil, errors.Join(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: commit: %w", err)
	}
	return res, nil
}

// Run compiles a DML builder and executes it.
func (c Conn) Run(ctx context.Context, b Compiler) (Result, error) {
	stmt, err := b.Compile()
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, stmt)
}

func (c Conn) execAll(ctx context.Context, stmts [][]segment, params []veloxql.Parameter) (Result, error) {
	var total batchResult
	for _, segs := range stmts {
		query, args, err := rebind(c.dialect, segs, params)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		res, err := c.ExecContext(ctx, query, args...)
		c.observe(ctx, query, args, start, err, false)
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: exec: %w", wrapError(err))
		}
		if len(stmts) == 1 {
			return res, nil
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: exec: %w", err)
		}
		total.affected += n
	}
	return total, nil
}

// Query runs a SELECT statement and materializes its rows. Deferred
// collection includes are loaded and attached before Query returns.
func (c Conn) Query(ctx context.Context, stmt *veloxql.CompiledStatement) ([]veloxql.Record, error) {
	if stmt.Projection == nil {
		return nil, errors.New("dialect/sql: query: statement has no projection")
	}
	query, args, err := Rebind(c.dialect, stmt.SQL, stmt.Parameters)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	records, err := c.scan(ctx, query, args, stmt.Projection)
	c.observe(ctx, query, args, start, err, true)
	if err != nil {
		return nil, err
	}
	if err := c.loadIncludes(ctx, stmt.Includes, records); err != nil {
		return nil, err
	}
	return records, nil
}

// All compiles a query and returns its records.
func (c Conn) All(ctx context.Context, b Compiler) ([]veloxql.Record, error) {
	stmt, err := b.Compile()
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, stmt)
}

// scan runs query and reads every row. The rows are closed on return.
func (c Conn) scan(ctx context.Context, query string, args []any, spec *veloxql.ProjectionSpec) ([]veloxql.Record, error) {
	rows, err := c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	records, err := scanRecords(rows, spec)
	if cerr := rows.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return records, nil
}

func (c Conn) observe(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	if c.hook != nil {
		c.hook(ctx, query, args, time.Since(start), err, isQuery)
	}
}

// batchResult sums the results of the statements of a batch.
type batchResult struct {
	affected int64
}

// LastInsertId is not defined for batches.
func (batchResult) LastInsertId() (int64, error) {
	return 0, errors.New("dialect/sql: LastInsertId is not supported by batches")
}

// RowsAffected returns the rows affected by every statement.
func (r batchResult) RowsAffected() (int64, error) { return r.affected, nil }

type (
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}
