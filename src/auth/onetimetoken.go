package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
)

const registrationTokenDuration = time.Hour * 24 * 7

func makeTokenContent() string {
	tokenBytes := make([]byte, 30)
	_, err := io.ReadFull(rand.Reader, tokenBytes)
	if err != nil {
		panic(err)
	}

	return base64.URLEncoding.EncodeToString(tokenBytes)
}

func CreateRegistrationToken(ctx context.Context, conn db.ConnOrTx, ownerID int) (*models.OneTimeToken, error) {
	token := models.OneTimeToken{
		OwnerID: ownerID,
		Type:    models.TokenTypeRegistration,
		Content: makeTokenContent(),
		Expires: time.Now().Add(registrationTokenDuration),
	}

	id, err := db.QueryOneScalar[int](ctx, conn,
		`
		INSERT INTO one_time_token (owner_id, token_type, content, expires)
		VALUES ($1, $2, $3, $4)
		RETURNING id
		`,
		token.OwnerID, token.Type, token.Content, token.Expires,
	)
	if err != nil {
		return nil, oops.New(err, "failed to create registration token")
	}
	token.ID = id

	return &token, nil
}

// Looks up an unexpired token of the given type for the given owner and
// content. Expired or absent both come back as db.NotFound.
func GetToken(ctx context.Context, conn db.ConnOrTx, ownerID int, tokenType models.OneTimeTokenType, content string) (*models.OneTimeToken, error) {
	token, err := db.QueryOne[models.OneTimeToken](ctx, conn,
		`
		SELECT id, owner_id, token_type, content, expires
		FROM one_time_token
		WHERE owner_id = $1 AND token_type = $2 AND content = $3 AND expires > CURRENT_TIMESTAMP
		`,
		ownerID, tokenType, content,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to look up token")
	}

	return token, nil
}

func DeleteToken(ctx context.Context, conn db.ConnOrTx, id int) error {
	_, err := conn.Exec(ctx, "DELETE FROM one_time_token WHERE id = $1", id)
	if err != nil {
		return oops.New(err, "failed to delete token")
	}

	return nil
}
