package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jroots/jroots/src/migration/types"
)

func init() {
	registerMigration(AddTelegramFileId{})
}

type AddTelegramFileId struct{}

func (m AddTelegramFileId) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 4, 2, 18, 14, 55, 0, time.UTC))
}

func (m AddTelegramFileId) Name() string {
	return "AddTelegramFileId"
}

func (m AddTelegramFileId) Description() string {
	return "Caches Telegram's file id on assets so repeat relays skip the upload"
}

func (m AddTelegramFileId) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		ALTER TABLE asset ADD COLUMN telegram_file_id VARCHAR(255);
	`)
	return err
}

func (m AddTelegramFileId) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		ALTER TABLE asset DROP COLUMN telegram_file_id;
	`)
	return err
}
