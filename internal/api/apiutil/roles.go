package apiutil

import (
	"context"

	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

// TeamRoles adapts the team_members queries to authz.RoleLookup.
type TeamRoles struct {
	Queries *dbgen.Queries
}

func (t TeamRoles) TeamMemberRole(ctx context.Context, teamID, userID int64) (string, error) {
	return t.Queries.GetTeamMemberRole(ctx, dbgen.GetTeamMemberRoleParams{
		TeamID: teamID,
		UserID: userID,
	})
}
