package models

import "time"

// Something that happened that an admin should look at, e.g. an approval
// that could not be applied. Events are append-only; resolving one just
// marks it handled so it drops out of the default admin view.
type AdminEvent struct {
	ID int `db:"id"`

	AssetID *int   `db:"asset_id"`
	Message string `db:"message"`

	CreatedAt  time.Time `db:"created_at"`
	IsResolved bool      `db:"is_resolved"`
}
