package sqlx

import (
	"context"
	"database/sql"
	"errors"
)

// Query executes a query on the given DB.
func Query(
	ctx context.Context,
	db DB,
	query string,
	args ...any,
) *sql.Rows {
	rows, err := db.QueryContext(ctx, query, args...)
	Must(err)
	return rows
}

// TryQueryInto executes a single-row query on the given DB and scans the
// result into values.
//
// It returns false if the query produced no rows.
func TryQueryInto(
	ctx context.Context,
	db DB,
	query string,
	args []any,
	values ...any,
) bool {
	err := db.QueryRowContext(ctx, query, args...).Scan(values...)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}

	Must(err)
	return true
}
