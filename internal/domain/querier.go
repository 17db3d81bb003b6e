package domain

import (
	"context"
	"database/sql"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories accept it so the same code runs standalone or inside a
// transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a transaction handle usable as a Querier.
type Tx interface {
	Querier
	Commit() error
	Rollback() error
}

// DB opens transactions. *sql.DB is adapted to it in
// internal/infrastructure/database.
type DB interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}
