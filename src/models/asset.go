package models

import "time"

// A stored original image plus its derived thumbnail. Uploading the same
// bytes twice always resolves to the same row; Sha512Hash is UNIQUE and is
// the dedup key as well as the fingerprint that cache validators sign.
type Asset struct {
	ID int `db:"id"`

	Original   []byte `db:"original"`
	Thumbnail  []byte `db:"thumbnail"`
	Sha512Hash string `db:"sha512_hash"`

	Width  int `db:"width"`
	Height int `db:"height"`

	// Telegram file_id handed back by the review channel after the first
	// raw relay. Purely a cache; its absence only makes the next relay
	// re-send the bytes.
	TelegramFileID *string `db:"telegram_file_id"`

	SourceID *int `db:"source_id"`

	CreatedAt time.Time `db:"created_at"`
}

// Optional provenance for assets (an archive, a photographer, a collection).
type AssetSource struct {
	ID          int    `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}
