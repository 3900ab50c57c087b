package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
)

const SessionCookieName = "JRootsSession"

func makeSessionId() string {
	idBytes := make([]byte, 40)
	_, err := io.ReadFull(rand.Reader, idBytes)
	if err != nil {
		panic(err)
	}

	return base64.StdEncoding.EncodeToString(idBytes)[:40]
}

var ErrNoSession = errors.New("no session found")

func GetSession(ctx context.Context, conn db.ConnOrTx, id string) (*models.Session, error) {
	sess, err := db.QueryOne[models.Session](ctx, conn,
		`
		SELECT id, user_id, expires_at
		FROM session
		WHERE id = $1 AND expires_at > CURRENT_TIMESTAMP
		`,
		id,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, ErrNoSession
		} else {
			return nil, oops.New(err, "failed to get session")
		}
	}

	return sess, nil
}

func CreateSession(ctx context.Context, conn db.ConnOrTx, userID int) (*models.Session, error) {
	session := models.Session{
		ID:        makeSessionId(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(models.SessionDuration),
	}

	_, err := conn.Exec(ctx,
		"INSERT INTO session (id, user_id, expires_at) VALUES ($1, $2, $3)",
		session.ID, session.UserID, session.ExpiresAt,
	)
	if err != nil {
		return nil, oops.New(err, "failed to persist session")
	}

	return &session, nil
}

// Deletes a session by id. If no session with that id exists, no
// error is returned.
func DeleteSession(ctx context.Context, conn db.ConnOrTx, id string) error {
	_, err := conn.Exec(ctx, "DELETE FROM session WHERE id = $1", id)
	if err != nil {
		return oops.New(err, "failed to delete session")
	}

	return nil
}

// Deletes all of one user's sessions, e.g. after a password change.
func DeleteSessionsForUser(ctx context.Context, conn db.ConnOrTx, userID int) error {
	_, err := conn.Exec(ctx, "DELETE FROM session WHERE user_id = $1", userID)
	if err != nil {
		return oops.New(err, "failed to delete user sessions")
	}

	return nil
}

func NewSessionCookie(session *models.Session) *http.Cookie {
	return &http.Cookie{
		Name:  SessionCookieName,
		Value: session.ID,

		Domain:  config.Config.Auth.CookieDomain,
		Path:    "/",
		Expires: session.ExpiresAt,

		Secure:   config.Config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:   SessionCookieName,
		Domain: config.Config.Auth.CookieDomain,
		Path:   "/",
		MaxAge: -1,
	}
}
