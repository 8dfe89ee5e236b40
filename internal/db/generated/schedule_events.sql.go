package dbgen

import (
	"context"
	"database/sql"
)

const createScheduleEvent = `-- name: CreateScheduleEvent :one
INSERT INTO schedule_events (
    team_id,
    parent_event_id,
    event_type,
    title,
    description,
    event_date,
    end_date,
    start_time,
    end_time,
    location,
    opponent,
    recurrence_kind,
    recurrence_interval,
    recurrence_end_date,
    recurrence_weekdays,
    recurrence_rule,
    created_by_user_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, team_id, parent_event_id, event_type, title, description, event_date, end_date, start_time, end_time, location, opponent, recurrence_kind, recurrence_interval, recurrence_end_date, recurrence_weekdays, recurrence_rule, created_by_user_id, created_at, updated_at
`

type CreateScheduleEventParams struct {
	TeamID             int64
	ParentEventID      sql.NullInt64
	EventType          string
	Title              string
	Description        sql.NullString
	EventDate          string
	EndDate            sql.NullString
	StartTime          sql.NullString
	EndTime            sql.NullString
	Location           sql.NullString
	Opponent           sql.NullString
	RecurrenceKind     sql.NullString
	RecurrenceInterval sql.NullInt64
	RecurrenceEndDate  sql.NullString
	RecurrenceWeekdays sql.NullString
	RecurrenceRule     sql.NullString
	CreatedByUserID    int64
}

func (q *Queries) CreateScheduleEvent(ctx context.Context, arg CreateScheduleEventParams) (ScheduleEvent, error) {
	row := q.db.QueryRowContext(ctx, createScheduleEvent,
		arg.TeamID,
		arg.ParentEventID,
		arg.EventType,
		arg.Title,
		arg.Description,
		arg.EventDate,
		arg.EndDate,
		arg.StartTime,
		arg.EndTime,
		arg.Location,
		arg.Opponent,
		arg.RecurrenceKind,
		arg.RecurrenceInterval,
		arg.RecurrenceEndDate,
		arg.RecurrenceWeekdays,
		arg.RecurrenceRule,
		arg.CreatedByUserID,
	)
	return scanScheduleEvent(row)
}

const deleteScheduleEvent = `-- name: DeleteScheduleEvent :execrows
DELETE FROM schedule_events
WHERE id = ?
`

func (q *Queries) DeleteScheduleEvent(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteScheduleEvent, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getScheduleEvent = `-- name: GetScheduleEvent :one
SELECT id, team_id, parent_event_id, event_type, title, description, event_date, end_date, start_time, end_time, location, opponent, recurrence_kind, recurrence_interval, recurrence_end_date, recurrence_weekdays, recurrence_rule, created_by_user_id, created_at, updated_at
FROM schedule_events
WHERE id = ?
`

func (q *Queries) GetScheduleEvent(ctx context.Context, id int64) (ScheduleEvent, error) {
	row := q.db.QueryRowContext(ctx, getScheduleEvent, id)
	return scanScheduleEvent(row)
}

const listScheduleEventsByTeam = `-- name: ListScheduleEventsByTeam :many
SELECT id, team_id, parent_event_id, event_type, title, description, event_date, end_date, start_time, end_time, location, opponent, recurrence_kind, recurrence_interval, recurrence_end_date, recurrence_weekdays, recurrence_rule, created_by_user_id, created_at, updated_at
FROM schedule_events
WHERE team_id = ?
  AND event_date >= ?
  AND event_date <= ?
ORDER BY event_date, COALESCE(start_time, ''), id
`

type ListScheduleEventsByTeamParams struct {
	TeamID   int64
	FromDate string
	ToDate   string
}

func (q *Queries) ListScheduleEventsByTeam(ctx context.Context, arg ListScheduleEventsByTeamParams) ([]ScheduleEvent, error) {
	rows, err := q.db.QueryContext(ctx, listScheduleEventsByTeam, arg.TeamID, arg.FromDate, arg.ToDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScheduleEvent
	for rows.Next() {
		i, err := scanScheduleEvent(rows)
		if err != nil {
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

type scheduleEventScanner interface {
	Scan(dest ...interface{}) error
}

func scanScheduleEvent(row scheduleEventScanner) (ScheduleEvent, error) {
	var i ScheduleEvent
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.ParentEventID,
		&i.EventType,
		&i.Title,
		&i.Description,
		&i.EventDate,
		&i.EndDate,
		&i.StartTime,
		&i.EndTime,
		&i.Location,
		&i.Opponent,
		&i.RecurrenceKind,
		&i.RecurrenceInterval,
		&i.RecurrenceEndDate,
		&i.RecurrenceWeekdays,
		&i.RecurrenceRule,
		&i.CreatedByUserID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
