// Package database wraps a pooled PostgreSQL connection, maps driver
// failures into a small typed error taxonomy, and scopes explicit
// transactions to a reserved per-session connection.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
)

// Default pool and statement settings. Config values of zero fall back here.
const (
	DefaultMaxOpenConns     = 20
	DefaultMaxIdleConns     = 10
	DefaultConnMaxLifetime  = 30 * time.Minute
	DefaultAcquireTimeout   = 5 * time.Second
	DefaultStatementTimeout = 30 * time.Second
	DefaultMaxResultRows    = 200
)

// Config holds connection pool and statement limits.
type Config struct {
	URL              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	MaxResultRows    int
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = DefaultMaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
	if c.StatementTimeout == 0 {
		c.StatementTimeout = DefaultStatementTimeout
	}
	if c.MaxResultRows == 0 {
		c.MaxResultRows = DefaultMaxResultRows
	}
	return c
}

// Adapter owns the shared connection pool. It is safe for concurrent use;
// sessions share nothing but the pool.
type Adapter struct {
	db  *sql.DB
	cfg Config
}

// Open connects to PostgreSQL, configures the pool, and verifies the
// connection with a bounded ping.
func Open(ctx context.Context, cfg Config) (*Adapter, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Adapter{db: db, cfg: cfg}, nil
}

// OpenLazy configures the pool without verifying the connection. The
// first statement surfaces connection failures instead; the health
// endpoint reports the database as degraded until it comes up.
func OpenLazy(cfg Config) (*Adapter, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &Adapter{db: db, cfg: cfg}, nil
}

// New wraps an existing *sql.DB (used by tests with sqlmock).
func New(db *sql.DB, cfg Config) *Adapter {
	return &Adapter{db: db, cfg: cfg.withDefaults()}
}

// Ping verifies the database is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.AcquireTimeout)
	defer cancel()
	if err := a.db.PingContext(pingCtx); err != nil {
		return classify(err)
	}
	return nil
}

// Close closes the pool.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// MaxResultRows returns the configured row cap for result sets.
func (a *Adapter) MaxResultRows() int {
	return a.cfg.MaxResultRows
}

// Conn returns a session-scoped handle on the adapter. Statements run on
// the shared pool until Begin reserves a dedicated connection; from then on
// everything runs inside that transaction until Commit or Rollback releases
// it. Close rolls back any transaction still open.
func (a *Adapter) Conn() *Conn {
	return &Conn{adapter: a}
}

// executor is satisfied by *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn is the per-session database handle. Not safe for concurrent use;
// a session executes its statements strictly in order.
type Conn struct {
	adapter  *Adapter
	reserved *sql.Conn
	tx       *sql.Tx
}

// acquire returns the executor for one statement. Outside a transaction it
// checks out a pooled connection first, so pool exhaustion surfaces as a
// connection-class error once the acquire timeout elapses rather than
// counting against the statement timeout. The release func must be called
// after the statement's rows are fully consumed.
func (c *Conn) acquire(ctx context.Context) (executor, func(), error) {
	if c.tx != nil {
		return c.tx, func() {}, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, c.adapter.cfg.AcquireTimeout)
	defer cancel()

	conn, err := c.adapter.db.Conn(acquireCtx)
	if err != nil {
		return nil, nil, &Error{
			Kind:    KindConnectionLost,
			Message: "could not acquire a database connection",
			Hint:    "the connection pool may be exhausted; retry shortly",
			cause:   err,
		}
	}
	return conn, func() { conn.Close() }, nil //nolint:errcheck
}

func (c *Conn) stmtCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.adapter.cfg.StatementTimeout)
}

// Query runs a parameterized statement that returns rows, scanning up to
// the configured row cap.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*RowSet, error) {
	ex, release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	sctx, cancel := c.stmtCtx(ctx)
	defer cancel()

	rows, err := ex.QueryContext(sctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	rs, err := scanRows(rows, c.adapter.cfg.MaxResultRows)
	if err != nil {
		return nil, classify(err)
	}
	return rs, nil
}

// Exec runs a parameterized statement that returns no rows and reports the
// affected-row count.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	ex, release, err := c.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	sctx, cancel := c.stmtCtx(ctx)
	defer cancel()

	res, err := ex.ExecContext(sctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// DDL statements report no row count; treat as zero.
		return 0, nil
	}
	return affected, nil
}

// Begin reserves a pooled connection for this session and opens a
// transaction on it. Pool exhaustion surfaces as a connection-class error
// once the acquire timeout elapses.
func (c *Conn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return &Error{Kind: KindSyntaxOrSchema, Message: "transaction already open"}
	}

	acquireCtx, cancel := context.WithTimeout(ctx, c.adapter.cfg.AcquireTimeout)
	defer cancel()

	conn, err := c.adapter.db.Conn(acquireCtx)
	if err != nil {
		return &Error{
			Kind:    KindConnectionLost,
			Message: "could not reserve a database connection",
			Hint:    "the connection pool may be exhausted; retry shortly",
			cause:   err,
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		conn.Close() //nolint:errcheck
		return classify(err)
	}

	c.reserved = conn
	c.tx = tx
	return nil
}

// Commit commits the open transaction and releases the reserved connection.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return &Error{Kind: KindSyntaxOrSchema, Message: "no transaction open"}
	}
	err := c.tx.Commit()
	c.release()
	if err != nil {
		return classify(err)
	}
	return nil
}

// Rollback aborts the open transaction and releases the reserved connection.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return &Error{Kind: KindSyntaxOrSchema, Message: "no transaction open"}
	}
	err := c.tx.Rollback()
	c.release()
	if err != nil && err != sql.ErrTxDone {
		return classify(err)
	}
	return nil
}

// InTransaction reports whether an explicit transaction is open.
func (c *Conn) InTransaction() bool {
	return c.tx != nil
}

// Close releases the session handle. An open transaction is rolled back
// first, so a session can never leave a dangling transaction behind.
func (c *Conn) Close() error {
	if c.tx != nil {
		return c.Rollback()
	}
	c.release()
	return nil
}

func (c *Conn) release() {
	c.tx = nil
	if c.reserved != nil {
		c.reserved.Close() //nolint:errcheck
		c.reserved = nil
	}
}

// identPattern is the shape of a safe SQL identifier. PostgreSQL truncates
// identifiers at 63 bytes, so longer names are rejected outright.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// CheckIdent rejects names that cannot be used as table, column, or index
// identifiers.
func CheckIdent(name string) error {
	if name == "" {
		return fmt.Errorf("identifier is empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("identifier %q exceeds 63 characters", name)
	}
	if !identPattern.MatchString(name) {
		return fmt.Errorf("identifier %q contains invalid characters", name)
	}
	return nil
}

// QuoteIdent returns the identifier double-quoted for safe interpolation
// into DDL and column lists.
func QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}
