package auth

import (
	"context"
	"time"

	"github.com/jroots/jroots/src/jobs"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
	"github.com/jroots/jroots/src/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

func DeleteExpiredSessions(ctx context.Context, conn *pgxpool.Pool) (int64, error) {
	tag, err := conn.Exec(ctx, "DELETE FROM session WHERE expires_at <= CURRENT_TIMESTAMP")
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}

	return tag.RowsAffected(), nil
}

// Accounts that never verified their email get cleaned up once their
// registration token lapses, freeing the username and address for reuse.
func DeleteUnverifiedUsers(ctx context.Context, conn *pgxpool.Pool) (int64, error) {
	tag, err := conn.Exec(ctx,
		`
		DELETE FROM jroots_user
		WHERE
			status = $1 AND
			(SELECT COUNT(*) FROM one_time_token AS ott WHERE ott.owner_id = jroots_user.id AND ott.expires < $2 AND ott.token_type = $3) > 0
		`,
		models.UserStatusInactive,
		time.Now(),
		models.TokenTypeRegistration,
	)
	if err != nil {
		return 0, oops.New(err, "failed to delete unverified users")
	}

	return tag.RowsAffected(), nil
}

func PeriodicallyDeleteExpiredStuff(conn *pgxpool.Pool) *jobs.Job {
	job := jobs.New("periodically delete expired stuff")
	go func() {
		defer job.Finish()

		t := time.NewTicker(1 * time.Hour)
		for {
			select {
			case <-t.C:
				err := func() (err error) {
					defer utils.RecoverPanicAsError(&err)

					n, err := DeleteExpiredSessions(job.Ctx, conn)
					if err == nil {
						if n > 0 {
							job.Logger.Info().Int64("num deleted sessions", n).Msg("Deleted expired sessions")
						}
					} else {
						job.Logger.Error().Err(err).Msg("Failed to delete expired sessions")
					}

					n, err = DeleteUnverifiedUsers(job.Ctx, conn)
					if err == nil {
						if n > 0 {
							job.Logger.Info().Int64("num deleted users", n).Msg("Deleted unverified users")
						}
					} else {
						job.Logger.Error().Err(err).Msg("Failed to delete unverified users")
					}
					return nil
				}()
				if err != nil {
					job.Logger.Error().Err(err).Msg("Panicked in PeriodicallyDeleteExpiredStuff")
				}
			case <-job.Canceled():
				return
			}
		}
	}()
	return job
}
