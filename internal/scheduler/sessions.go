package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Sideout/internal/api/auth"
	"github.com/codr1/Sideout/internal/db"
)

const (
	sessionCleanupJobName = "session_cleanup"
	sessionCleanupTimeout = time.Minute
)

// RegisterSessionCleanupJob purges expired login sessions on cronExpr.
func RegisterSessionCleanupJob(svc *Service, database *db.DB, cronExpr string) error {
	if database == nil {
		return fmt.Errorf("session cleanup job requires database")
	}

	jobLogger := log.With().
		Str("component", "session_cleanup_job").
		Str("job_name", sessionCleanupJobName).
		Str("cron", cronExpr).
		Logger()

	_, err := svc.AddJob(sessionCleanupJobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sessionCleanupTimeout)
		defer cancel()
		runSessionCleanup(jobLogger.WithContext(ctx), database, time.Now())
	})
	return err
}

func runSessionCleanup(ctx context.Context, database *db.DB, now time.Time) int64 {
	logger := zerolog.Ctx(ctx)

	purged, err := auth.PurgeExpiredSessions(ctx, database.Queries, now)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge expired sessions")
		return 0
	}
	if purged > 0 {
		logger.Info().Int64("purged", purged).Msg("Expired sessions purged")
	}
	return purged
}
