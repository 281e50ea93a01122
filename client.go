package veloxql

import (
	"context"
	"io"
	"log/slog"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/typehandler"
)

// Client is the entry point of the builder API. It holds the dialect and
// value handlers that statements are compiled with. A Client is immutable
// after NewClient and safe for concurrent use. Query chains are not.
type Client struct {
	dialect  dialect.Provider
	handlers *typehandler.Registry
	registry *schema.Registry
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger that compiled statements are logged to at
// debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithRegistry sets the schema registry used to resolve entities by name.
func WithRegistry(r *schema.Registry) Option {
	return func(c *Client) {
		c.registry = r
	}
}

// WithTypeHandlers replaces the value handler registry.
func WithTypeHandlers(h *typehandler.Registry) Option {
	return func(c *Client) {
		c.handlers = h
	}
}

// NewClient returns a client compiling for the given dialect.
func NewClient(d dialect.Provider, opts ...Option) *Client {
	c := &Client{dialect: d}
	for _, opt := range opts {
		opt(c)
	}
	if c.handlers == nil {
		c.handlers = typehandler.New(d.Literals())
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Dialect returns the dialect provider of the client.
func (c *Client) Dialect() dialect.Provider { return c.dialect }

// Registry returns the schema registry, or nil if none was configured.
func (c *Client) Registry() *schema.Registry { return c.registry }

// Entity returns the registered entity with the given name.
func (c *Client) Entity(name string) (*schema.Entity, bool) {
	return c.registry.Lookup(name)
}

func (c *Client) newCompiler() *compiler {
	return &compiler{
		client:  c,
		dialect: c.dialect,
		binder:  newBinder(c.dialect, c.handlers),
	}
}

// logCompiled logs a compiled statement at debug level.
func (c *Client) logCompiled(kind string, stmt *CompiledStatement) {
	if !c.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	c.log.Debug("veloxql: compiled statement",
		"kind", kind,
		"dialect", c.dialect.Name(),
		"sql", stmt.SQL,
		"params", len(stmt.Parameters),
		"statements", stmt.Statements,
	)
}

// compiler lowers the plans of one statement. Its binder collects the
// parameters of the whole statement including sub-queries.
type compiler struct {
	client  *Client
	dialect dialect.Provider
	binder  *binder
	// aliases holds the sources renamed in this statement.
	aliases map[*TableSource]string
}
