// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/Sideout/internal/api"
	"github.com/codr1/Sideout/internal/api/attendance"
	"github.com/codr1/Sideout/internal/api/auth"
	"github.com/codr1/Sideout/internal/api/players"
	"github.com/codr1/Sideout/internal/api/schedule"
	"github.com/codr1/Sideout/internal/api/teams"
	"github.com/codr1/Sideout/internal/config"
	"github.com/codr1/Sideout/internal/db"
	"github.com/codr1/Sideout/internal/ratelimit"
)

type server struct {
	http    *http.Server
	limiter *ratelimit.Limiter
}

func (s *server) Close() {
	s.limiter.Close()
}

func newServer(cfg *config.Config, database *db.DB) *server {
	router := http.NewServeMux()

	sessions := auth.NewSessions(database.Queries, auth.SessionConfig{
		TTL:           cfg.SessionTTL(),
		SecureCookies: !cfg.IsDevelopment(),
		Secret:        cfg.App.SecretKey,
	})
	limiter := ratelimit.New(&ratelimit.Config{
		MaxAttempts:  cfg.Login.MaxAttempts,
		Lockout:      cfg.LoginLockout(),
		MaxIPPerHour: cfg.Login.MaxIPPerHour,
	})

	handler := api.ChainMiddleware(
		router,
		api.WithAuth(sessions),
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
	)

	registerRoutes(router, routeHandlers{
		auth: auth.NewHandler(database, auth.HandlerConfig{
			Sessions:   sessions,
			Limiter:    limiter,
			TrustProxy: cfg.App.TrustProxy,
		}),
		teams:   teams.NewHandler(database),
		players: players.NewHandler(database, players.Options{PhoneRegion: cfg.App.PhoneRegion}),
		schedule: schedule.NewHandler(database, schedule.Options{
			MaxRecurrenceDays:    cfg.Schedule.MaxRecurrenceDays,
			BiweeklyUsesInterval: cfg.Schedule.BiweeklyIntervalMultiplier,
			CalendarName:         cfg.App.Name,
		}),
		attendance: attendance.NewHandler(database),
	})

	return &server{
		http: &http.Server{
			Addr:         ":" + strconv.Itoa(cfg.App.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		limiter: limiter,
	}
}

type routeHandlers struct {
	auth       *auth.Handler
	teams      *teams.Handler
	players    *players.Handler
	schedule   *schedule.Handler
	attendance *attendance.Handler
}

func registerRoutes(mux *http.ServeMux, h routeHandlers) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth
	mux.HandleFunc("POST /api/v1/auth/register", h.auth.HandleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", h.auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", h.auth.HandleLogout)
	mux.HandleFunc("GET /api/v1/auth/me", h.auth.HandleMe)

	// Teams and membership
	mux.HandleFunc("POST /api/v1/teams", h.teams.HandleTeamCreate)
	mux.HandleFunc("GET /api/v1/teams", h.teams.HandleTeamsList)
	mux.HandleFunc("GET /api/v1/teams/{id}", h.teams.HandleTeamDetail)
	mux.HandleFunc("PUT /api/v1/teams/{id}", h.teams.HandleTeamUpdate)
	mux.HandleFunc("DELETE /api/v1/teams/{id}", h.teams.HandleTeamDelete)
	mux.HandleFunc("GET /api/v1/teams/{id}/members", h.teams.HandleMembersList)
	mux.HandleFunc("POST /api/v1/teams/{id}/members", h.teams.HandleMemberAdd)
	mux.HandleFunc("DELETE /api/v1/teams/{id}/members/{user_id}", h.teams.HandleMemberRemove)

	// Roster
	mux.HandleFunc("GET /api/v1/teams/{id}/players", h.players.HandlePlayersList)
	mux.HandleFunc("POST /api/v1/teams/{id}/players", h.players.HandlePlayerCreate)
	mux.HandleFunc("POST /api/v1/teams/{id}/players/import", h.players.HandlePlayersImport)
	mux.HandleFunc("PUT /api/v1/players/{id}", h.players.HandlePlayerUpdate)
	mux.HandleFunc("DELETE /api/v1/players/{id}", h.players.HandlePlayerDelete)

	// Schedule
	mux.HandleFunc("POST /api/v1/teams/{id}/events", h.schedule.HandleEventCreate)
	mux.HandleFunc("GET /api/v1/teams/{id}/events", h.schedule.HandleEventsList)
	mux.HandleFunc("GET /api/v1/teams/{id}/calendar.ics", h.schedule.HandleCalendarFeed)
	mux.HandleFunc("GET /api/v1/events/{id}", h.schedule.HandleEventDetail)
	mux.HandleFunc("PATCH /api/v1/events/{id}", h.schedule.HandleEventUpdate)
	mux.HandleFunc("DELETE /api/v1/events/{id}", h.schedule.HandleEventDelete)
	mux.HandleFunc("GET /teams/{id}/schedule", h.schedule.HandleSchedulePage)

	// Attendance and availability
	mux.HandleFunc("PUT /api/v1/events/{id}/attendance", h.attendance.HandleAttendanceRecord)
	mux.HandleFunc("GET /api/v1/events/{id}/attendance", h.attendance.HandleAttendanceList)
	mux.HandleFunc("GET /api/v1/teams/{id}/attendance/summary", h.attendance.HandleAttendanceSummary)
	mux.HandleFunc("PUT /api/v1/events/{id}/availability", h.attendance.HandleAvailabilitySet)
	mux.HandleFunc("GET /api/v1/events/{id}/availability", h.attendance.HandleAvailabilityList)
}
