package models

import "time"

type OneTimeTokenType int

const (
	TokenTypeRegistration OneTimeTokenType = 1
)

type OneTimeToken struct {
	ID      int              `db:"id"`
	OwnerID int              `db:"owner_id"`
	Type    OneTimeTokenType `db:"token_type"`
	Content string           `db:"content"`
	Expires time.Time        `db:"expires"`
}
