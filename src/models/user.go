package models

import "time"

type UserStatus int

const (
	UserStatusInactive  UserStatus = 1 // Default for new users
	UserStatusConfirmed            = 2 // Confirmed email address
	UserStatusBanned               = 3
)

type User struct {
	ID int `db:"id"`

	Username string `db:"username"`
	Password string `db:"password"`
	Email    string `db:"email"`

	DateJoined time.Time  `db:"date_joined"`
	LastLogin  *time.Time `db:"last_login"`

	IsAdmin bool       `db:"is_admin"`
	Status  UserStatus `db:"status"`
}

// Whether the user may use the full delivery path at all. Unverified
// accounts get nothing from protected endpoints, not even watermarked
// renderings.
func (u *User) IsVerified() bool {
	return u.Status == UserStatusConfirmed
}
