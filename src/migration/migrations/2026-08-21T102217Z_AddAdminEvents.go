package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jroots/jroots/src/migration/types"
)

func init() {
	registerMigration(AddAdminEvents{})
}

type AddAdminEvents struct{}

func (m AddAdminEvents) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 8, 21, 10, 22, 17, 0, time.UTC))
}

func (m AddAdminEvents) Name() string {
	return "AddAdminEvents"
}

func (m AddAdminEvents) Description() string {
	return "Adds the admin event feed"
}

func (m AddAdminEvents) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE admin_event (
			id SERIAL PRIMARY KEY,
			asset_id INT REFERENCES asset (id) ON DELETE SET NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_resolved BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX admin_event_created_at ON admin_event (created_at DESC, id DESC);
	`)
	return err
}

func (m AddAdminEvents) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE admin_event;
	`)
	return err
}
