//go:build smoke

package smoke

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/codr1/Sideout/internal/testutil"
)

func TestServerStartup(t *testing.T) {
	repoRoot := findRepoRoot(t)
	tempDir := t.TempDir()

	binPath := filepath.Join(tempDir, "sideout-server")
	buildCmd := exec.Command("go", "build", "-o", binPath, "./cmd/server")
	buildCmd.Dir = repoRoot
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build server: %v\n%s", err, buildOutput)
	}

	port := reservePort(t)
	configPath := filepath.Join(tempDir, "config.yaml")
	configBody := fmt.Sprintf(`app:
  name: "Sideout Smoke"
  environment: "development"
  port: %d
  base_url: "http://localhost:%d"

database:
  driver: "sqlite"
  filename: "%s"

schedule:
  max_recurrence_days: 365

sessions:
  ttl_hours: 1
  cleanup_cron: "*/5 * * * *"
`, port, port, filepath.ToSlash(filepath.Join(tempDir, "db", "smoke.db")))

	if err := os.WriteFile(configPath, []byte(configBody), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cmd := exec.Command(binPath, "-config", configPath)
	cmd.Dir = tempDir
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}

	waitDone := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(waitDone)
	}()

	t.Cleanup(func() {
		if cmd.Process == nil {
			return
		}
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-waitDone:
			return
		case <-time.After(5 * time.Second):
		}
		_ = cmd.Process.Kill()
		select {
		case <-waitDone:
		case <-time.After(5 * time.Second):
			t.Logf("server process did not exit after kill")
		}
	})

	healthURL := fmt.Sprintf("http://localhost:%d/health", port)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	deadline := time.Now().Add(10 * time.Second)

	for {
		select {
		case <-waitDone:
			t.Fatalf("server exited before health check: %v\nstdout:\n%s\nstderr:\n%s", waitErr, stdout.String(), stderr.String())
		default:
		}

		resp, err := client.Get(healthURL)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}

		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for health check\nstdout:\n%s\nstderr:\n%s", stdout.String(), stderr.String())
		}

		time.Sleep(100 * time.Millisecond)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	runScheduleFlow(t, baseURL)

	select {
	case <-waitDone:
		t.Fatalf("server exited unexpectedly: %v\nstdout:\n%s\nstderr:\n%s", waitErr, stdout.String(), stderr.String())
	default:
	}
}

// runScheduleFlow registers a coach, creates a team and a weekly series, and
// reads it back through the JSON API and the calendar feed.
func runScheduleFlow(t *testing.T, baseURL string) {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	client := &http.Client{Timeout: 5 * time.Second, Jar: jar}

	send := func(method, path, body string, wantStatus int) []byte {
		t.Helper()
		req, err := http.NewRequest(method, baseURL+path, strings.NewReader(body))
		if err != nil {
			t.Fatalf("build %s %s: %v", method, path, err)
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		payload, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != wantStatus {
			t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, resp.StatusCode, payload)
		}
		return payload
	}

	send(http.MethodGet, "/api/v1/auth/me", "", http.StatusUnauthorized)
	send(http.MethodPost, "/api/v1/auth/register", `{"email": "coach@example.com", "name": "Coach", "password": "smoke-test-pass"}`, http.StatusCreated)

	var created struct {
		Team struct {
			ID int64 `json:"id"`
		} `json:"team"`
	}
	if err := json.Unmarshal(send(http.MethodPost, "/api/v1/teams", `{"name": "Smoke Varsity"}`, http.StatusCreated), &created); err != nil {
		t.Fatalf("decode team: %v", err)
	}
	teamPath := fmt.Sprintf("/api/v1/teams/%d", created.Team.ID)

	var series struct {
		OccurrencesCreated int `json:"occurrencesCreated"`
	}
	body := `{"eventType": "practice", "title": "Practice", "eventDate": "2024-01-01", "startTime": "16:00", "endTime": "18:00",
		"recurrence": {"kind": "weekly", "endDate": "2024-01-29", "weekdays": [1]}}`
	if err := json.Unmarshal(send(http.MethodPost, teamPath+"/events", body, http.StatusCreated), &series); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if series.OccurrencesCreated != 4 {
		t.Fatalf("expected 4 weekly occurrences, got %d", series.OccurrencesCreated)
	}

	feed := string(send(http.MethodGet, teamPath+"/calendar.ics", "", http.StatusOK))
	if got := strings.Count(feed, "BEGIN:VEVENT"); got != 5 {
		t.Fatalf("expected 5 VEVENTs in feed, got %d", got)
	}

	send(http.MethodPost, "/api/v1/auth/logout", "", http.StatusNoContent)
	send(http.MethodGet, teamPath+"/events", "", http.StatusUnauthorized)
}

func reservePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	t.Fatal("failed to locate repo root with go.mod")
	return ""
}

func TestMigrationsApplied(t *testing.T) {
	db := testutil.NewTestDB(t)

	expectedTables := []string{
		"users",
		"sessions",
		"teams",
		"team_members",
		"players",
		"schedule_events",
		"attendance",
		"availability",
	}

	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?",
			table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			t.Fatalf("missing expected table %q after migrations", table)
		}
		if err != nil {
			t.Fatalf("query table %q existence: %v", table, err)
		}
	}
}

func TestForeignKeyIntegrity(t *testing.T) {
	db := testutil.NewTestDB(t)

	var foreignKeysEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeysEnabled); err != nil {
		t.Fatalf("query foreign_keys pragma: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Fatalf("expected foreign_keys pragma enabled, got %d", foreignKeysEnabled)
	}

	_, err := db.Exec(
		`INSERT INTO schedule_events (team_id, event_type, title, event_date, created_by_user_id)
		 VALUES (9999, 'practice', 'Orphan', '2024-01-01', 9999)`,
	)
	if err == nil {
		t.Fatal("expected foreign key constraint failure for invalid team_id")
	}
}
