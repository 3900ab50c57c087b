package models

import "time"

const SessionDuration = time.Hour * 24 * 14

type Session struct {
	ID        string    `db:"id"`
	UserID    int       `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
}
