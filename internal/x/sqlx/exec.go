package sqlx

import (
	"context"
	"database/sql"
)

// Exec executes a statement on the given DB.
func Exec(
	ctx context.Context,
	db DB,
	query string,
	args ...any,
) sql.Result {
	res, err := db.ExecContext(ctx, query, args...)
	Must(err)
	return res
}

// Insert executes an insert statement on the given DB and returns the last
// insert ID.
func Insert(
	ctx context.Context,
	db DB,
	query string,
	args ...any,
) uint64 {
	res := Exec(ctx, db, query, args...)

	id, err := res.LastInsertId()
	Must(err)

	return uint64(id)
}

// TryExecRow executes a statement on the given DB that is expected to affect
// at most one row.
//
// It returns false if no rows were affected.
func TryExecRow(
	ctx context.Context,
	db DB,
	query string,
	args ...any,
) bool {
	res := Exec(ctx, db, query, args...)

	n, err := res.RowsAffected()
	Must(err)

	return n == 1
}
