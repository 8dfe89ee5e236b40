package dbgen

import (
	"context"
	"database/sql"
	"time"
)

const listAttendanceByEvent = `-- name: ListAttendanceByEvent :many
SELECT a.event_id, a.player_id, p.first_name, p.last_name, p.jersey_number, a.status, a.recorded_by_user_id, a.recorded_at
FROM attendance a
JOIN players p ON p.id = a.player_id
WHERE a.event_id = ?
ORDER BY p.last_name, p.first_name, p.id
`

type ListAttendanceByEventRow struct {
	EventID          int64
	PlayerID         int64
	FirstName        string
	LastName         string
	JerseyNumber     sql.NullInt64
	Status           string
	RecordedByUserID int64
	RecordedAt       time.Time
}

func (q *Queries) ListAttendanceByEvent(ctx context.Context, eventID int64) ([]ListAttendanceByEventRow, error) {
	rows, err := q.db.QueryContext(ctx, listAttendanceByEvent, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListAttendanceByEventRow
	for rows.Next() {
		var i ListAttendanceByEventRow
		if err := rows.Scan(
			&i.EventID,
			&i.PlayerID,
			&i.FirstName,
			&i.LastName,
			&i.JerseyNumber,
			&i.Status,
			&i.RecordedByUserID,
			&i.RecordedAt,
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

const summarizeTeamAttendance = `-- name: SummarizeTeamAttendance :many
SELECT p.id AS player_id,
       p.first_name,
       p.last_name,
       COALESCE(SUM(CASE WHEN a.status = 'present' THEN 1 ELSE 0 END), 0) AS present,
       COALESCE(SUM(CASE WHEN a.status = 'late' THEN 1 ELSE 0 END), 0) AS late,
       COALESCE(SUM(CASE WHEN a.status = 'absent' THEN 1 ELSE 0 END), 0) AS absent,
       COALESCE(SUM(CASE WHEN a.status = 'excused' THEN 1 ELSE 0 END), 0) AS excused
FROM players p
LEFT JOIN attendance a ON a.player_id = p.id
WHERE p.team_id = ?
GROUP BY p.id, p.first_name, p.last_name
ORDER BY p.last_name, p.first_name, p.id
`

type SummarizeTeamAttendanceRow struct {
	PlayerID  int64
	FirstName string
	LastName  string
	Present   int64
	Late      int64
	Absent    int64
	Excused   int64
}

func (q *Queries) SummarizeTeamAttendance(ctx context.Context, teamID int64) ([]SummarizeTeamAttendanceRow, error) {
	rows, err := q.db.QueryContext(ctx, summarizeTeamAttendance, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SummarizeTeamAttendanceRow
	for rows.Next() {
		var i SummarizeTeamAttendanceRow
		if err := rows.Scan(
			&i.PlayerID,
			&i.FirstName,
			&i.LastName,
			&i.Present,
			&i.Late,
			&i.Absent,
			&i.Excused,
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

const upsertAttendance = `-- name: UpsertAttendance :exec
INSERT INTO attendance (event_id, player_id, status, recorded_by_user_id)
VALUES (?, ?, ?, ?)
ON CONFLICT (event_id, player_id) DO UPDATE SET
    status = excluded.status,
    recorded_by_user_id = excluded.recorded_by_user_id,
    recorded_at = CURRENT_TIMESTAMP
`

type UpsertAttendanceParams struct {
	EventID          int64
	PlayerID         int64
	Status           string
	RecordedByUserID int64
}

func (q *Queries) UpsertAttendance(ctx context.Context, arg UpsertAttendanceParams) error {
	_, err := q.db.ExecContext(ctx, upsertAttendance,
		arg.EventID,
		arg.PlayerID,
		arg.Status,
		arg.RecordedByUserID,
	)
	return err
}
