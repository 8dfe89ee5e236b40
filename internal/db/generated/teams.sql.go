package dbgen

import (
	"context"
	"time"
)

const createTeam = `-- name: CreateTeam :one
INSERT INTO teams (name, season, level, created_by_user_id)
VALUES (?, ?, ?, ?)
RETURNING id, name, season, level, created_by_user_id, created_at, updated_at
`

type CreateTeamParams struct {
	Name            string
	Season          string
	Level           string
	CreatedByUserID int64
}

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	row := q.db.QueryRowContext(ctx, createTeam,
		arg.Name,
		arg.Season,
		arg.Level,
		arg.CreatedByUserID,
	)
	var i Team
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Season,
		&i.Level,
		&i.CreatedByUserID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deleteTeam = `-- name: DeleteTeam :execrows
DELETE FROM teams
WHERE id = ?
`

func (q *Queries) DeleteTeam(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTeam, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getTeam = `-- name: GetTeam :one
SELECT id, name, season, level, created_by_user_id, created_at, updated_at
FROM teams
WHERE id = ?
`

func (q *Queries) GetTeam(ctx context.Context, id int64) (Team, error) {
	row := q.db.QueryRowContext(ctx, getTeam, id)
	var i Team
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Season,
		&i.Level,
		&i.CreatedByUserID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listTeamsForUser = `-- name: ListTeamsForUser :many
SELECT t.id, t.name, t.season, t.level, t.created_by_user_id, t.created_at, t.updated_at, tm.role
FROM teams t
JOIN team_members tm ON tm.team_id = t.id
WHERE tm.user_id = ?
ORDER BY t.name, t.id
`

type ListTeamsForUserRow struct {
	ID              int64
	Name            string
	Season          string
	Level           string
	CreatedByUserID int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Role            string
}

func (q *Queries) ListTeamsForUser(ctx context.Context, userID int64) ([]ListTeamsForUserRow, error) {
	rows, err := q.db.QueryContext(ctx, listTeamsForUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListTeamsForUserRow
	for rows.Next() {
		var i ListTeamsForUserRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Season,
			&i.Level,
			&i.CreatedByUserID,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.Role,
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

const updateTeam = `-- name: UpdateTeam :one
UPDATE teams
SET name = ?,
    season = ?,
    level = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, name, season, level, created_by_user_id, created_at, updated_at
`

type UpdateTeamParams struct {
	Name   string
	Season string
	Level  string
	ID     int64
}

func (q *Queries) UpdateTeam(ctx context.Context, arg UpdateTeamParams) (Team, error) {
	row := q.db.QueryRowContext(ctx, updateTeam,
		arg.Name,
		arg.Season,
		arg.Level,
		arg.ID,
	)
	var i Team
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Season,
		&i.Level,
		&i.CreatedByUserID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
