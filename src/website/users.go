package website

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/jroots/jroots/src/auth"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/email"
	"github.com/jroots/jroots/src/logging"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
)

var usernameRegex = regexp.MustCompile(`^[0-9a-zA-Z_]{3,30}$`)

const minPasswordLength = 8

func Register(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.RejectRequest("Bad form data.")
	}

	username := strings.TrimSpace(form.Get("username"))
	emailAddress := strings.TrimSpace(strings.ToLower(form.Get("email")))
	password := form.Get("password")

	if !usernameRegex.MatchString(username) {
		return c.RejectRequest("Usernames must be 3-30 characters of letters, numbers, and underscores.")
	}
	if !email.IsEmail(emailAddress) {
		return c.RejectRequest("That doesn't look like an email address.")
	}
	if len(password) < minPasswordLength {
		return c.RejectRequest("Passwords must be at least 8 characters.")
	}

	taken, err := db.QueryOneScalar[int](c, c.Conn,
		`
		SELECT COUNT(*)
		FROM jroots_user
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = $2
		`,
		username, emailAddress,
	)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to check for existing users"))
	}
	if taken > 0 {
		return c.RejectRequest("That username or email is already in use.")
	}

	hashed := auth.HashPassword(password)

	tx, err := c.Conn.Begin(c)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to start transaction"))
	}
	defer tx.Rollback(c)

	userID, err := db.QueryOneScalar[int](c, tx,
		`
		INSERT INTO jroots_user (username, email, password, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
		`,
		username, emailAddress, hashed.String(), models.UserStatusInactive,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Somebody took the name between our check and the insert.
			return c.RejectRequest("That username or email is already in use.")
		}
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to create user"))
	}

	token, err := auth.CreateRegistrationToken(c, tx, userID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	err = tx.Commit(c)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to commit user"))
	}

	sendRegistrationEmail(c, emailAddress, username, token.Content)

	res := ResponseData{StatusCode: http.StatusCreated}
	res.WriteJson(map[string]string{"status": "check your email"})
	return res
}

func sendRegistrationEmail(c *RequestContext, toAddress, username, tokenContent string) {
	logger := c.Logger.With().Logger()
	go func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		mailCtx = logging.AttachLoggerToContext(&logger, mailCtx)
		defer logging.LogPanics(&logger)

		err := email.SendRegistrationEmail(mailCtx, toAddress, username, tokenContent)
		if err != nil {
			logger.Error().Err(err).Msg("failed to send registration email")
		}
	}()
}

func VerifyEmail(c *RequestContext) ResponseData {
	username := c.URL().Query().Get("username")
	tokenContent := c.URL().Query().Get("token")
	if username == "" || tokenContent == "" {
		return c.RejectRequest("Missing username or token.")
	}

	user, err := fetchUserByUsername(c, username)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return c.RejectRequest("Invalid verification link.")
		}
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	if user.Status != models.UserStatusInactive {
		// Already verified; treat repeat clicks as success.
		var res ResponseData
		res.WriteJson(map[string]string{"status": "verified"})
		return res
	}

	token, err := auth.GetToken(c, c.Conn, user.ID, models.TokenTypeRegistration, tokenContent)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return c.RejectRequest("Invalid verification link.")
		}
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	tx, err := c.Conn.Begin(c)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to start transaction"))
	}
	defer tx.Rollback(c)

	_, err = tx.Exec(c,
		"UPDATE jroots_user SET status = $1 WHERE id = $2",
		models.UserStatusConfirmed, user.ID,
	)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to confirm user"))
	}

	err = auth.DeleteToken(c, tx, token.ID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	err = tx.Commit(c)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to commit verification"))
	}

	var res ResponseData
	res.WriteJson(map[string]string{"status": "verified"})
	return res
}

func Login(c *RequestContext) ResponseData {
	form, err := c.GetFormValues()
	if err != nil {
		return c.RejectRequest("Bad form data.")
	}

	username := strings.TrimSpace(form.Get("username"))
	password := form.Get("password")
	if username == "" || password == "" {
		return c.RejectRequest("Missing username or password.")
	}

	user, err := fetchUserByUsername(c, username)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return c.ErrorResponse(http.StatusUnauthorized)
		}
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	if user.Status == models.UserStatusBanned {
		return c.ErrorResponse(http.StatusUnauthorized)
	}

	hashed, err := auth.ParsePasswordString(user.Password)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to parse stored password"))
	}

	ok, err := auth.CheckPassword(password, hashed)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to check password"))
	}
	if !ok {
		return c.ErrorResponse(http.StatusUnauthorized)
	}

	session, err := auth.CreateSession(c, c.Conn, user.ID)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	_, err = c.Conn.Exec(c, "UPDATE jroots_user SET last_login = CURRENT_TIMESTAMP WHERE id = $1", user.ID)
	if err != nil {
		c.Logger.Error().Err(err).Msg("failed to update last login time")
	}

	var res ResponseData
	res.SetCookie(auth.NewSessionCookie(session))
	res.WriteJson(map[string]any{
		"username": user.Username,
		"is_admin": user.IsAdmin,
		"verified": user.IsVerified(),
	})
	return res
}

func Logout(c *RequestContext) ResponseData {
	if c.CurrentSession != nil {
		err := auth.DeleteSession(c, c.Conn, c.CurrentSession.ID)
		if err != nil {
			return c.ErrorResponse(http.StatusInternalServerError, err)
		}
	}

	var res ResponseData
	res.SetCookie(auth.DeleteSessionCookie())
	res.WriteJson(map[string]string{"status": "logged out"})
	return res
}

func fetchUserByUsername(c *RequestContext, username string) (*models.User, error) {
	return db.QueryOne[models.User](c, c.Conn,
		`
		SELECT id, username, password, email, date_joined, last_login, is_admin, status
		FROM jroots_user
		WHERE LOWER(username) = LOWER($1)
		`,
		username,
	)
}
