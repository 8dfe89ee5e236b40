package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const listAvailabilityByEvent = `-- name: ListAvailabilityByEvent :many
SELECT v.event_id, v.player_id, p.first_name, p.last_name, v.status, v.note, v.updated_at
FROM availability v
JOIN players p ON p.id = v.player_id
WHERE v.event_id = ?
ORDER BY p.last_name, p.first_name, p.id
`

type ListAvailabilityByEventRow struct {
	EventID   int64
	PlayerID  int64
	FirstName string
	LastName  string
	Status    string
	Note      sql.NullString
	UpdatedAt time.Time
}

func (q *Queries) ListAvailabilityByEvent(ctx context.Context, eventID int64) ([]ListAvailabilityByEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listAvailabilityByEvent, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAvailabilityByEventRow
	for rows.Next() {
		var i ListAvailabilityByEventRow
		if err := rows.Scan(
			&i.EventID,
			&i.PlayerID,
			&i.FirstName,
			&i.LastName,
			&i.Status,
			&i.Note,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertAvailability = `-- name: UpsertAvailability :one
INSERT INTO availability (event_id, player_id, status, note, updated_by_user_id)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (event_id, player_id) DO UPDATE SET
    status = excluded.status,
    note = excluded.note,
    updated_by_user_id = excluded.updated_by_user_id,
    updated_at = CURRENT_TIMESTAMP
RETURNING event_id, player_id, status, note, updated_by_user_id, updated_at
`

type UpsertAvailabilityParams struct {
	EventID         int64
	PlayerID        int64
	Status          string
	Note            sql.NullString
	UpdatedByUserID int64
}

func (q *Queries) UpsertAvailability(ctx context.Context, arg UpsertAvailabilityParams) (Availability, error) {
	row := q.db.QueryRowContext(ctx, upsertAvailability,
		arg.EventID,
		arg.PlayerID,
		arg.Status,
		arg.Note,
		arg.UpdatedByUserID,
	)
	var i Availability
	err := row.Scan(
		&i.EventID,
		&i.PlayerID,
		&i.Status,
		&i.Note,
		&i.UpdatedByUserID,
		&i.UpdatedAt,
	)
	return i, err
}
