// Package sqlx provides helpers for database/sql that panic via Must() rather
// than returning errors, for use in functions that defer Recover().
package sqlx

import (
	"context"
	"database/sql"
)

// DB is the subset of *sql.DB and *sql.Tx used to run statements.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Scanner is an interface satisfied by *sql.Rows and *sql.Row.
type Scanner interface {
	Scan(...any) error
}

// Begin starts a new transaction.
func Begin(ctx context.Context, db *sql.DB) *sql.Tx {
	tx, err := db.BeginTx(ctx, nil)
	Must(err)
	return tx
}
