package dbgen

import (
	"context"
	"time"
)

const countTeamMembersByRole = `-- name: CountTeamMembersByRole :one
SELECT COUNT(*)
FROM team_members
WHERE team_id = ? AND role = ?
`

type CountTeamMembersByRoleParams struct {
	TeamID int64
	Role   string
}

func (q *Queries) CountTeamMembersByRole(ctx context.Context, arg CountTeamMembersByRoleParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTeamMembersByRole, arg.TeamID, arg.Role)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getTeamMemberRole = `-- name: GetTeamMemberRole :one
SELECT role
FROM team_members
WHERE team_id = ? AND user_id = ?
`

type GetTeamMemberRoleParams struct {
	TeamID int64
	UserID int64
}

func (q *Queries) GetTeamMemberRole(ctx context.Context, arg GetTeamMemberRoleParams) (string, error) {
	row := q.db.QueryRowContext(ctx, getTeamMemberRole, arg.TeamID, arg.UserID)
	var role string
	err := row.Scan(&role)
	return role, err
}

const listTeamMembers = `-- name: ListTeamMembers :many
SELECT tm.team_id, tm.user_id, u.name, u.email, tm.role, tm.created_at
FROM team_members tm
JOIN users u ON u.id = tm.user_id
WHERE tm.team_id = ?
ORDER BY tm.role, u.name
`

type ListTeamMembersRow struct {
	TeamID    int64
	UserID    int64
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

func (q *Queries) ListTeamMembers(ctx context.Context, teamID int64) ([]ListTeamMembersRow, error) {
	rows, err := q.db.QueryContext(ctx, listTeamMembers, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListTeamMembersRow
	for rows.Next() {
		var i ListTeamMembersRow
		if err := rows.Scan(
			&i.TeamID,
			&i.UserID,
			&i.Name,
			&i.Email,
			&i.Role,
			&i.CreatedAt,
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

const removeTeamMember = `-- name: RemoveTeamMember :execrows
DELETE FROM team_members
WHERE team_id = ? AND user_id = ?
`

type RemoveTeamMemberParams struct {
	TeamID int64
	UserID int64
}

func (q *Queries) RemoveTeamMember(ctx context.Context, arg RemoveTeamMemberParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, removeTeamMember, arg.TeamID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertTeamMember = `-- name: UpsertTeamMember :one
INSERT INTO team_members (team_id, user_id, role)
VALUES (?, ?, ?)
ON CONFLICT (team_id, user_id) DO UPDATE SET role = excluded.role
RETURNING team_id, user_id, role, created_at
`

type UpsertTeamMemberParams struct {
	TeamID int64
	UserID int64
	Role   string
}

func (q *Queries) UpsertTeamMember(ctx context.Context, arg UpsertTeamMemberParams) (TeamMember, error) {
	row := q.db.QueryRowContext(ctx, upsertTeamMember, arg.TeamID, arg.UserID, arg.Role)
	var i TeamMember
	err := row.Scan(
		&i.TeamID,
		&i.UserID,
		&i.Role,
		&i.CreatedAt,
	)
	return i, err
}
