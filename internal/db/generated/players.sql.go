package dbgen

import (
	"context"
	"database/sql"
)

const createPlayer = `-- name: CreatePlayer :one
INSERT INTO players (
    team_id,
    user_id,
    first_name,
    last_name,
    jersey_number,
    position,
    phone,
    guardian_phone,
    status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, team_id, user_id, first_name, last_name, jersey_number, position, phone, guardian_phone, status, created_at, updated_at
`

type CreatePlayerParams struct {
	TeamID        int64
	UserID        sql.NullInt64
	FirstName     string
	LastName      string
	JerseyNumber  sql.NullInt64
	Position      string
	Phone         sql.NullString
	GuardianPhone sql.NullString
	Status        string
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (Player, error) {
	row := q.db.QueryRowContext(ctx, createPlayer,
		arg.TeamID,
		arg.UserID,
		arg.FirstName,
		arg.LastName,
		arg.JerseyNumber,
		arg.Position,
		arg.Phone,
		arg.GuardianPhone,
		arg.Status,
	)
	var i Player
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.UserID,
		&i.FirstName,
		&i.LastName,
		&i.JerseyNumber,
		&i.Position,
		&i.Phone,
		&i.GuardianPhone,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const deletePlayer = `-- name: DeletePlayer :execrows
DELETE FROM players
WHERE id = ?
`

func (q *Queries) DeletePlayer(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePlayer, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getPlayer = `-- name: GetPlayer :one
SELECT id, team_id, user_id, first_name, last_name, jersey_number, position, phone, guardian_phone, status, created_at, updated_at
FROM players
WHERE id = ?
`

func (q *Queries) GetPlayer(ctx context.Context, id int64) (Player, error) {
	row := q.db.QueryRowContext(ctx, getPlayer, id)
	var i Player
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.UserID,
		&i.FirstName,
		&i.LastName,
		&i.JerseyNumber,
		&i.Position,
		&i.Phone,
		&i.GuardianPhone,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listPlayersByTeam = `-- name: ListPlayersByTeam :many
SELECT id, team_id, user_id, first_name, last_name, jersey_number, position, phone, guardian_phone, status, created_at, updated_at
FROM players
WHERE team_id = ?
ORDER BY last_name, first_name, id
`

func (q *Queries) ListPlayersByTeam(ctx context.Context, teamID int64) ([]Player, error) {
	rows, err := q.db.QueryContext(ctx, listPlayersByTeam, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Player
	for rows.Next() {
		var i Player
		if err := rows.Scan(
			&i.ID,
			&i.TeamID,
			&i.UserID,
			&i.FirstName,
			&i.LastName,
			&i.JerseyNumber,
			&i.Position,
			&i.Phone,
			&i.GuardianPhone,
			&i.Status,
			&i.CreatedAt,
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

const updatePlayer = `-- name: UpdatePlayer :one
UPDATE players
SET user_id = ?,
    first_name = ?,
    last_name = ?,
    jersey_number = ?,
    position = ?,
    phone = ?,
    guardian_phone = ?,
    status = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, team_id, user_id, first_name, last_name, jersey_number, position, phone, guardian_phone, status, created_at, updated_at
`

type UpdatePlayerParams struct {
	UserID        sql.NullInt64
	FirstName     string
	LastName      string
	JerseyNumber  sql.NullInt64
	Position      string
	Phone         sql.NullString
	GuardianPhone sql.NullString
	Status        string
	ID            int64
}

func (q *Queries) UpdatePlayer(ctx context.Context, arg UpdatePlayerParams) (Player, error) {
	row := q.db.QueryRowContext(ctx, updatePlayer,
		arg.UserID,
		arg.FirstName,
		arg.LastName,
		arg.JerseyNumber,
		arg.Position,
		arg.Phone,
		arg.GuardianPhone,
		arg.Status,
		arg.ID,
	)
	var i Player
	err := row.Scan(
		&i.ID,
		&i.TeamID,
		&i.UserID,
		&i.FirstName,
		&i.LastName,
		&i.JerseyNumber,
		&i.Position,
		&i.Phone,
		&i.GuardianPhone,
		&i.Status,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
