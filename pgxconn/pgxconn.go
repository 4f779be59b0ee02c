package pgxconn

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yuku/connpool"
)

// Conn wraps a *pgx.Conn so it satisfies connpool.Conn.
type Conn struct {
	conn *pgx.Conn
}

// Raw returns the underlying pgx connection.
func (c *Conn) Raw() *pgx.Conn {
	return c.conn
}

// Ping verifies the server is still reachable on this connection.
func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the underlying connection.
func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Connector opens pgx connections from a parsed connection config.
type Connector struct {
	config *pgx.ConnConfig
}

// NewConnector parses a pgx connection string into a Connector.
func NewConnector(connString string) (*Connector, error) {
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	return NewConnectorConfig(config), nil
}

// NewConnectorConfig creates a Connector from an existing pgx config.
func NewConnectorConfig(config *pgx.ConnConfig) *Connector {
	return &Connector{config: config}
}

// Connect opens a new connection. The config is copied on every dial, as
// pgx reserves the right to mutate it during connection establishment.
func (c *Connector) Connect(ctx context.Context) (*Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, c.config.Copy())
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &Conn{conn: conn}, nil
}

// New creates a connection pool of pgx connections. config may be nil for
// defaults; its Connector field is set from connString and need not be
// populated.
func New(ctx context.Context, connString string, config *connpool.Config[*Conn]) (*connpool.Pool[*Conn], error) {
	connector, err := NewConnector(connString)
	if err != nil {
		return nil, err
	}

	if config == nil {
		config = &connpool.Config[*Conn]{}
	}
	config.Connector = connector

	return connpool.New(config)
}
