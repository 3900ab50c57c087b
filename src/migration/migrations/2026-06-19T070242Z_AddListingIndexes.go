package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jroots/jroots/src/migration/types"
)

func init() {
	registerMigration(AddListingIndexes{})
}

type AddListingIndexes struct{}

func (m AddListingIndexes) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 6, 19, 7, 2, 42, 0, time.UTC))
}

func (m AddListingIndexes) Name() string {
	return "AddListingIndexes"
}

func (m AddListingIndexes) Description() string {
	return "Indexes listing sort order and grant lookups"
}

func (m AddListingIndexes) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE INDEX listing_created_at ON listing (created_at DESC, id DESC);
		CREATE INDEX access_grant_asset ON access_grant (asset_id);
	`)
	return err
}

func (m AddListingIndexes) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP INDEX listing_created_at;
		DROP INDEX access_grant_asset;
	`)
	return err
}
