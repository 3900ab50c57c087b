package website

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/jroots/jroots/src/auth"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/logging"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
	"github.com/jroots/jroots/src/utils"

	"github.com/google/uuid"
)

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				maybeError, ok := recovered.(*error)
				var err error
				if ok {
					err = *maybeError
				} else {
					err = oops.New(nil, fmt.Sprintf("Recovered from panic with value: %v", recovered))
				}
				res = c.ErrorResponse(http.StatusInternalServerError, err)
			}
		}()

		return h(c)
	}
}

// Tags every request with an id, scopes the logger to it, and logs the
// request line with its duration once the handler returns.
func logRequests(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		requestID := uuid.New().String()
		logger := c.Logger.With().
			Str("request_id", requestID).
			Str("method", c.Req.Method).
			Str("path", c.Req.URL.Path).
			Logger()
		c.Logger = &logger
		c.ctx = logging.AttachLoggerToContext(&logger, c.ctx)

		start := time.Now()
		res := h(c)

		c.Logger.Info().
			Int("status", utils.OrDefault(res.StatusCode, http.StatusOK)).
			Dur("duration", time.Since(start)).
			Msg("Served request")

		return res
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.FullUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}

// Resolves the session cookie to a user, if any. Never fails the request;
// a missing or stale cookie just means anonymous.
func loadCurrentUser(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		cookie, err := c.Req.Cookie(auth.SessionCookieName)
		if err == nil {
			user, session, err := getCurrentUser(c, cookie.Value)
			if err != nil {
				return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to load current user"))
			}
			c.CurrentUser = user
			c.CurrentSession = session
		}

		return h(c)
	}
}

func getCurrentUser(c *RequestContext, sessionID string) (*models.User, *models.Session, error) {
	session, err := auth.GetSession(c, c.Conn, sessionID)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	user, err := db.QueryOne[models.User](c, c.Conn,
		`
		SELECT id, username, password, email, date_joined, last_login, is_admin, status
		FROM jroots_user
		WHERE id = $1
		`,
		session.UserID,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			// A session for a deleted user; treat as logged out.
			return nil, nil, nil
		}
		return nil, nil, oops.New(err, "failed to get user for session")
	}

	return user, session, nil
}

func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil {
			return c.ErrorResponse(http.StatusUnauthorized)
		}

		return h(c)
	}
}

// Protected image routes are off limits until the email is verified, even
// at the watermarked tier.
func needsVerified(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil {
			return c.ErrorResponse(http.StatusUnauthorized)
		}
		if !c.CurrentUser.IsVerified() {
			return c.ErrorResponse(http.StatusForbidden)
		}

		return h(c)
	}
}

func adminsOnly(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil || !c.CurrentUser.IsAdmin {
			return FourOhFour(c)
		}

		return h(c)
	}
}

func securityTimerMiddleware(duration time.Duration, h Handler) Handler {
	// Will make sure that the request takes at least `duration` to finish. Adds a 10% random duration.
	return func(c *RequestContext) ResponseData {
		additionalDuration := time.Duration(rand.Int63n(int64(duration)/10 + 1))
		timer := time.NewTimer(duration + additionalDuration)
		res := h(c)
		select {
		case <-c.Done():
		case <-timer.C:
		}
		return res
	}
}
