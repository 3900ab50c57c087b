package models

import "time"

// A priced, described reference to an Asset, shown in search results.
// Listings have a lifecycle independent of their asset: deleting a listing
// never deletes the asset it points to.
type Listing struct {
	ID int `db:"id"`

	AssetID     int    `db:"asset_id"`
	PriceCents  int    `db:"price_cents"`
	Description string `db:"description"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
