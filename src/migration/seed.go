package migration

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/jroots/jroots/src/access"
	"github.com/jroots/jroots/src/assets"
	"github.com/jroots/jroots/src/auth"
	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/utils"

	lorem "github.com/HandmadeNetwork/golorem"
)

// Creates only what's necessary to get the site running: the schema and an
// admin account.
func BareMinimumSeed() *models.User {
	Migrate(LatestVersion())

	ctx := context.Background()
	conn := db.NewConnWithConfig(config.PostgresConfig{
		LogLevel: "warn",
	})
	defer conn.Close(ctx)

	fmt.Println("Creating admin user (\"admin\"/\"password\")...")
	admin := seedUser(ctx, conn, models.User{Username: "admin", Email: "admin@jroots.example", IsAdmin: true})

	return admin
}

// Seeds the database with sample data for local dev: users in every state,
// images, listings, and one pre-approved grant.
func SampleSeed() {
	BareMinimumSeed()

	ctx := context.Background()
	conn := db.NewConnWithConfig(config.PostgresConfig{
		LogLevel: "warn",
	})
	defer conn.Close(ctx)

	fmt.Println("Creating normal users (all with password \"password\")...")
	alice := seedUser(ctx, conn, models.User{Username: "alice"})
	seedUser(ctx, conn, models.User{Username: "bob"})
	seedUser(ctx, conn, models.User{Username: "charlie", Status: models.UserStatusInactive})

	fmt.Println("Creating image sources...")
	sourceID, err := db.QueryOneScalar[int](ctx, conn,
		`
		INSERT INTO asset_source (name, description)
		VALUES ('Sample Archive', $1)
		RETURNING id
		`,
		lorem.Sentence(4, 12),
	)
	if err != nil {
		panic(err)
	}

	fmt.Println("Creating images and listings...")
	var firstAsset *models.Asset
	for i := 0; i < 8; i++ {
		asset, err := assets.Create(ctx, conn, assets.CreateInput{
			Content: seedImage(i),
		})
		if err != nil {
			panic(err)
		}
		if firstAsset == nil {
			firstAsset = asset
		}

		_, err = conn.Exec(ctx, "UPDATE asset SET source_id = $1 WHERE id = $2", sourceID, asset.ID)
		if err != nil {
			panic(err)
		}

		_, err = conn.Exec(ctx,
			`
			INSERT INTO listing (asset_id, price_cents, description)
			VALUES ($1, $2, $3)
			`,
			asset.ID, 500+i*250, lorem.Sentence(4, 12),
		)
		if err != nil {
			panic(err)
		}
	}

	fmt.Println("Granting alice access to the first image...")
	err = access.GrantAccess(ctx, conn, alice.ID, firstAsset.ID)
	if err != nil {
		panic(err)
	}
}

func seedUser(ctx context.Context, conn db.ConnOrTx, input models.User) *models.User {
	user, err := db.QueryOne[models.User](ctx, conn,
		`
		INSERT INTO jroots_user (username, password, email, is_admin, status)
		VALUES ($1, '', $2, $3, $4)
		RETURNING id, username, password, email, date_joined, last_login, is_admin, status
		`,
		input.Username,
		utils.OrDefault(input.Email, fmt.Sprintf("%s@jroots.example", input.Username)),
		input.IsAdmin,
		utils.OrDefault(input.Status, models.UserStatusConfirmed),
	)
	if err != nil {
		panic(err)
	}
	err = auth.SetPassword(ctx, conn, input.Username, "password")
	if err != nil {
		panic(err)
	}

	return user
}

// A deterministic gradient so each seed index yields distinct bytes (and
// therefore a distinct content hash).
func seedImage(seed int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + seed*31) % 256),
				G: uint8((y + seed*67) % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		panic(err)
	}
	return buf.Bytes()
}
