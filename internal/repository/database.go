package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrSecurityNotFound = errors.New("security not found in datasource")
	ErrNoTicks          = errors.New("no ticks found in datasource")
	ErrInvalidRange     = errors.New("start date after end date")
)

type securitiesRepository interface {
	GetSecurities(ctx context.Context, symbols []string) ([]securityRow, error)
}

type ticksRepository interface {
	GetTicks(ctx context.Context, arg getTicksParams) ([]tickRow, error)
	CountTicks(ctx context.Context, arg getTicksParams) (int64, error)
	InsertTicks(ctx context.Context, rows []tickRow) (int64, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	securities securitiesRepository
	ticks      ticksRepository
	conn       *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string, maxConns int32) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	q := newQueries(conn)
	return &Database{
		securities: q,
		ticks:      q,
		conn:       conn}, nil
}

// Migrate creates the tables if they do not exist.
func (db *Database) Migrate(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}
