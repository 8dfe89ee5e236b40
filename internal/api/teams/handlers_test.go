package teams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/Sideout/internal/api/authz"
	dbgen "github.com/codr1/Sideout/internal/db/generated"
	"github.com/codr1/Sideout/internal/testutil"
)

func teamRequestAs(user dbgen.User, method, target, body string, pathValues ...string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	return testutil.WithUser(req, user)
}

func TestTeamCreateMakesCreatorHeadCoach(t *testing.T) {
	database := testutil.NewTestDB(t)
	handler := NewHandler(database)
	coach := testutil.SeedUser(t, database, "Coach")

	rec := httptest.NewRecorder()
	handler.HandleTeamCreate(rec, teamRequestAs(coach, http.MethodPost, "/api/v1/teams", `{"name": " JV Boys ", "season": "Fall 2024", "level": "jv"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Team teamResponse `json:"team"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Team.Name != "JV Boys" || payload.Team.Role != authz.RoleHeadCoach {
		t.Fatalf("unexpected team %+v", payload.Team)
	}

	role, err := database.Queries.GetTeamMemberRole(context.Background(), dbgen.GetTeamMemberRoleParams{
		TeamID: payload.Team.ID,
		UserID: coach.ID,
	})
	if err != nil || role != authz.RoleHeadCoach {
		t.Fatalf("expected creator to be head coach, got %q, %v", role, err)
	}

	rec = httptest.NewRecorder()
	handler.HandleTeamCreate(rec, teamRequestAs(coach, http.MethodPost, "/api/v1/teams", `{"name": "   "}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for blank name, got %d", rec.Code)
	}
}

func TestTeamsListOnlyShowsMemberships(t *testing.T) {
	database := testutil.NewTestDB(t)
	handler := NewHandler(database)
	coach := testutil.SeedUser(t, database, "Coach")
	other := testutil.SeedUser(t, database, "Other Coach")
	testutil.SeedTeam(t, database, coach, "Varsity")
	testutil.SeedTeam(t, database, other, "Rivals")

	rec := httptest.NewRecorder()
	handler.HandleTeamsList(rec, teamRequestAs(coach, http.MethodGet, "/api/v1/teams", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload struct {
		Teams []teamResponse `json:"teams"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Teams) != 1 || payload.Teams[0].Name != "Varsity" {
		t.Fatalf("expected only Varsity, got %+v", payload.Teams)
	}
}

func TestTeamUpdateAndDeleteRoles(t *testing.T) {
	database := testutil.NewTestDB(t)
	handler := NewHandler(database)
	coach := testutil.SeedUser(t, database, "Coach")
	assistant := testutil.SeedUser(t, database, "Assistant")
	player := testutil.SeedUser(t, database, "Player")
	team := testutil.SeedTeam(t, database, coach, "Varsity")
	testutil.AddMember(t, database, team.ID, assistant.ID, authz.RoleAssistantCoach)
	testutil.AddMember(t, database, team.ID, player.ID, authz.RolePlayer)
	id := fmt.Sprintf("%d", team.ID)
	target := "/api/v1/teams/" + id

	rec := httptest.NewRecorder()
	handler.HandleTeamUpdate(rec, teamRequestAs(player, http.MethodPut, target, `{"name": "Hijacked"}`, "id", id))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for player update, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.HandleTeamUpdate(rec, teamRequestAs(assistant, http.MethodPut, target, `{"name": "Varsity Gold", "season": "2025"}`, "id", id))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for assistant update, got %d: %s", rec.Code, rec.Body.String())
	}
	stored, err := database.Queries.GetTeam(context.Background(), team.ID)
	if err != nil {
		t.Fatalf("load team: %v", err)
	}
	if stored.Name != "Varsity Gold" || stored.Season != "2025" {
		t.Fatalf("unexpected stored team %+v", stored)
	}

	rec = httptest.NewRecorder()
	handler.HandleTeamDelete(rec, teamRequestAs(assistant, http.MethodDelete, target, "", "id", id))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403 for assistant delete, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.HandleTeamDelete(rec, teamRequestAs(coach, http.MethodDelete, target, "", "id", id))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for head coach delete, got %d", rec.Code)
	}
	if _, err := database.Queries.GetTeam(context.Background(), team.ID); err == nil {
		t.Fatal("expected team to be deleted")
	}
}

func TestTeamDetailRequiresMembership(t *testing.T) {
	database := testutil.NewTestDB(t)
	handler := NewHandler(database)
	coach := testutil.SeedUser(t, database, "Coach")
	outsider := testutil.SeedUser(t, database, "Outsider")
	team := testutil.SeedTeam(t, database, coach, "Varsity")
	id := fmt.Sprintf("%d", team.ID)

	rec := httptest.NewRecorder()
	handler.HandleTeamDetail(rec, teamRequestAs(outsider, http.MethodGet, "/api/v1/teams/"+id, "", "id", id))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.HandleTeamDetail(rec, teamRequestAs(coach, http.MethodGet, "/api/v1/teams/"+id, "", "id", id))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"role":"head_coach"`) {
		t.Errorf("expected caller role in response, got %s", rec.Body.String())
	}
}

func TestMemberAddAndRemove(t *testing.T) {
	database := testutil.NewTestDB(t)
	handler := NewHandler(database)
	coach := testutil.SeedUser(t, database, "Coach")
	parent := testutil.SeedUser(t, database, "Parent")
	team := testutil.SeedTeam(t, database, coach, "Varsity")
	id := fmt.Sprintf("%d", team.ID)
	target := "/api/v1/teams/" + id + "/members"

	cases := []struct {
		body   string
		status int
	}{
		{fmt.Sprintf(`{"email": %q, "role": "coach"}`, parent.Email), http.StatusBadRequest},
		{`{"email": "", "role": "parent"}`, http.StatusBadRequest},
		{`{"email": "nobody@example.com", "role": "parent"}`, http.StatusNotFound},
		{fmt.Sprintf(`{"email": %q, "role": "Parent"}`, strings.ToUpper(parent.Email)), http.StatusOK},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.HandleMemberAdd(rec, teamRequestAs(coach, http.MethodPost, target, tc.body, "id", id))
		if rec.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d: %s", tc.body, tc.status, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	handler.HandleMembersList(rec, teamRequestAs(parent, http.MethodGet, target, "", "id", id))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 listing members, got %d", rec.Code)
	}
	var payload struct {
		Members []memberResponse `json:"members"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(payload.Members) != 2 {
		t.Fatalf("expected 2 members, got %+v", payload.Members)
	}

	userID := fmt.Sprintf("%d", parent.ID)
	rec = httptest.NewRecorder()
	handler.HandleMemberRemove(rec, teamRequestAs(coach, http.MethodDelete, target+"/"+userID, "", "id", id, "user_id", userID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.HandleMemberRemove(rec, teamRequestAs(coach, http.MethodDelete, target+"/"+userID, "", "id", id, "user_id", userID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 removing twice, got %d", rec.Code)
	}
}

func TestLastHeadCoachIsProtected(t *testing.T) {
	database := testutil.NewTestDB(t)
	handler := NewHandler(database)
	coach := testutil.SeedUser(t, database, "Coach")
	second := testutil.SeedUser(t, database, "Second Coach")
	team := testutil.SeedTeam(t, database, coach, "Varsity")
	id := fmt.Sprintf("%d", team.ID)
	coachID := fmt.Sprintf("%d", coach.ID)
	target := "/api/v1/teams/" + id + "/members"

	rec := httptest.NewRecorder()
	handler.HandleMemberRemove(rec, teamRequestAs(coach, http.MethodDelete, target+"/"+coachID, "", "id", id, "user_id", coachID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 removing last head coach, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.HandleMemberAdd(rec, teamRequestAs(coach, http.MethodPost, target, fmt.Sprintf(`{"email": %q, "role": "assistant_coach"}`, coach.Email), "id", id))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 demoting last head coach, got %d", rec.Code)
	}

	testutil.AddMember(t, database, team.ID, second.ID, authz.RoleHeadCoach)
	rec = httptest.NewRecorder()
	handler.HandleMemberRemove(rec, teamRequestAs(coach, http.MethodDelete, target+"/"+coachID, "", "id", id, "user_id", coachID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 once another head coach exists, got %d", rec.Code)
	}
}
