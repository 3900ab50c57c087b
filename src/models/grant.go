package models

import "time"

// The durable fact that a user may see an asset at full tier. At most one
// row per (user, asset); approvals re-applied through the review channel
// land on the UNIQUE constraint and are treated as already granted.
type Grant struct {
	UserID  int `db:"user_id"`
	AssetID int `db:"asset_id"`

	GrantedAt time.Time `db:"granted_at"`
}
