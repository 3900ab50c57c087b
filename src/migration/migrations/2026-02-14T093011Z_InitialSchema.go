package migrations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jroots/jroots/src/migration/types"
)

func init() {
	registerMigration(InitialSchema{})
}

type InitialSchema struct{}

func (m InitialSchema) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 2, 14, 9, 30, 11, 0, time.UTC))
}

func (m InitialSchema) Name() string {
	return "InitialSchema"
}

func (m InitialSchema) Description() string {
	return "Creates users, sessions, tokens, assets, listings, and grants"
}

func (m InitialSchema) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		CREATE TABLE jroots_user (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL,
			password VARCHAR(256) NOT NULL,
			email VARCHAR(254) NOT NULL,
			date_joined TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login TIMESTAMP WITH TIME ZONE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			status INT NOT NULL DEFAULT 1
		);
		CREATE UNIQUE INDEX jroots_user_username ON jroots_user (LOWER(username));
		CREATE UNIQUE INDEX jroots_user_email ON jroots_user (LOWER(email));

		CREATE TABLE session (
			id VARCHAR(40) PRIMARY KEY,
			user_id INT NOT NULL REFERENCES jroots_user (id) ON DELETE CASCADE,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE TABLE one_time_token (
			id SERIAL PRIMARY KEY,
			owner_id INT NOT NULL REFERENCES jroots_user (id) ON DELETE CASCADE,
			token_type INT NOT NULL,
			content VARCHAR(64) NOT NULL,
			expires TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE TABLE asset_source (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE asset (
			id SERIAL PRIMARY KEY,
			original BYTEA NOT NULL,
			thumbnail BYTEA NOT NULL,
			sha512_hash VARCHAR(128) NOT NULL UNIQUE,
			width INT NOT NULL,
			height INT NOT NULL,
			source_id INT REFERENCES asset_source (id) ON DELETE SET NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE listing (
			id SERIAL PRIMARY KEY,
			asset_id INT NOT NULL REFERENCES asset (id),
			price_cents INT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE access_grant (
			user_id INT NOT NULL REFERENCES jroots_user (id) ON DELETE CASCADE,
			asset_id INT NOT NULL REFERENCES asset (id) ON DELETE CASCADE,
			granted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, asset_id)
		);
	`)
	return err
}

func (m InitialSchema) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		DROP TABLE access_grant;
		DROP TABLE listing;
		DROP TABLE asset;
		DROP TABLE asset_source;
		DROP TABLE one_time_token;
		DROP TABLE session;
		DROP TABLE jroots_user;
	`)
	return err
}
