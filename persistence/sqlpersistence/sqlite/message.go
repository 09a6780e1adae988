package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tum-esm/hermes/internal/x/sqlx"
	"github.com/tum-esm/hermes/message"
)

// InsertMessage inserts a message and returns its newly assigned ID.
func (driver) InsertMessage(
	ctx context.Context,
	tx *sql.Tx,
	station string,
	m message.Message,
) (_ uint64, err error) {
	defer sqlx.Recover(&err)

	body, err := message.MarshalBody(m.Body)
	if err != nil {
		return 0, err
	}

	return sqlx.Insert(
		ctx,
		tx,
		`INSERT INTO hermes_message (
			station,
			status,
			revision,
			kind,
			body,
			issued_at,
			delivered_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`,
		station,
		m.Header.Status,
		m.Header.Revision,
		m.Body.Kind(),
		string(body),
		m.Header.IssuedAt.UnixMilli(),
		unixMilliOrNull(m.Header.DeliveredAt),
	), nil
}

// SelectMessage selects a single message by its ID.
func (driver) SelectMessage(
	ctx context.Context,
	tx *sql.Tx,
	station string,
	id uint64,
) (_ message.Message, _ bool, err error) {
	defer sqlx.Recover(&err)

	row := tx.QueryRowContext(
		ctx,
		`SELECT
			id,
			status,
			revision,
			kind,
			body,
			issued_at,
			delivered_at
		FROM hermes_message
		WHERE station = $1
		AND id = $2`,
		station,
		id,
	)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return message.Message{}, false, nil
	}
	sqlx.Must(err)

	return m, true, nil
}

// UpdateMessageStatus sets the status of an existing message.
func (driver) UpdateMessageStatus(
	ctx context.Context,
	tx *sql.Tx,
	station string,
	id uint64,
	s message.Status,
	deliveredAt time.Time,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`UPDATE hermes_message SET
			status = $1,
			delivered_at = $2
		WHERE station = $3
		AND id = $4`,
		s,
		unixMilliOrNull(deliveredAt),
		station,
		id,
	), nil
}

// DeleteMessage deletes a single message.
func (driver) DeleteMessage(
	ctx context.Context,
	tx *sql.Tx,
	station string,
	id uint64,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`DELETE FROM hermes_message
		WHERE station = $1
		AND id = $2`,
		station,
		id,
	), nil
}

// SelectPendingMessages selects all messages that have not been delivered, in
// ID order.
func (driver) SelectPendingMessages(
	ctx context.Context,
	tx *sql.Tx,
	station string,
) (_ []message.Message, err error) {
	defer sqlx.Recover(&err)

	rows := sqlx.Query(
		ctx,
		tx,
		`SELECT
			id,
			status,
			revision,
			kind,
			body,
			issued_at,
			delivered_at
		FROM hermes_message
		WHERE station = $1
		AND status != $2
		ORDER BY id`,
		station,
		message.Delivered,
	)
	defer rows.Close()

	var result []message.Message

	for rows.Next() {
		m, err := scanMessage(rows)
		sqlx.Must(err)
		result = append(result, m)
	}

	sqlx.Must(rows.Err())

	return result, nil
}

// DeleteDeliveredMessages deletes the messages that were delivered before the
// given time.
func (driver) DeleteDeliveredMessages(
	ctx context.Context,
	tx *sql.Tx,
	station string,
	before time.Time,
) (_ int, err error) {
	defer sqlx.Recover(&err)

	res := sqlx.Exec(
		ctx,
		tx,
		`DELETE FROM hermes_message
		WHERE station = $1
		AND status = $2
		AND delivered_at < $3`,
		station,
		message.Delivered,
		before.UnixMilli(),
	)

	n, err := res.RowsAffected()
	sqlx.Must(err)

	return int(n), nil
}

// scanMessage scans the next message from a row-set.
func scanMessage(s sqlx.Scanner) (message.Message, error) {
	var (
		m           message.Message
		kind        message.Kind
		body        string
		issuedAt    int64
		deliveredAt sql.NullInt64
	)

	if err := s.Scan(
		&m.Header.ID,
		&m.Header.Status,
		&m.Header.Revision,
		&kind,
		&body,
		&issuedAt,
		&deliveredAt,
	); err != nil {
		return message.Message{}, err
	}

	m.Header.IssuedAt = time.UnixMilli(issuedAt).UTC()

	if deliveredAt.Valid {
		m.Header.DeliveredAt = time.UnixMilli(deliveredAt.Int64).UTC()
	}

	b, err := message.UnmarshalBody(kind, []byte(body))
	if err != nil {
		return message.Message{}, err
	}
	m.Body = b

	return m, nil
}

// unixMilliOrNull returns t as unix milliseconds, or nil if t is the
// zero-value.
func unixMilliOrNull(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}

	return t.UnixMilli()
}

// createMessageSchema creates the schema elements for the outbound queue.
func createMessageSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS hermes_message (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			station      TEXT NOT NULL,
			status       INTEGER NOT NULL,
			revision     INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			body         TEXT NOT NULL,
			issued_at    INTEGER NOT NULL,
			delivered_at INTEGER
		)`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE INDEX IF NOT EXISTS hermes_message_status ON hermes_message (
			station,
			status,
			id
		)`,
	)
}

// dropMessageSchema drops the schema elements for the outbound queue.
func dropMessageSchema(ctx context.Context, db sqlx.DB) {
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS hermes_message`)
}
