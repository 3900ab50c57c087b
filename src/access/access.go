package access

import (
	"context"

	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
)

type Tier int

const (
	TierRestricted Tier = iota
	TierFull
)

// The stable string that identifies a tier inside signed cache validators.
func (t Tier) Key() string {
	if t == TierFull {
		return "full"
	}
	return "watermarked"
}

/*
Decides the tier for one delivery request. Consulted on every request, never
cached: a grant created between two requests must be visible on the second.

Callers must reject unverified or anonymous requesters before ever calling
this; restricted tier is only for verified identities.
*/
func Resolve(ctx context.Context, conn db.ConnOrTx, user *models.User, assetID int) (Tier, error) {
	if user.IsAdmin {
		return TierFull, nil
	}

	granted, err := HasGrant(ctx, conn, user.ID, assetID)
	if err != nil {
		return TierRestricted, err
	}
	if granted {
		return TierFull, nil
	}
	return TierRestricted, nil
}

func HasGrant(ctx context.Context, conn db.ConnOrTx, userID int, assetID int) (bool, error) {
	count, err := db.QueryOneScalar[int](ctx, conn,
		`
		SELECT COUNT(*)
		FROM access_grant
		WHERE user_id = $1 AND asset_id = $2
		`,
		userID, assetID,
	)
	if err != nil {
		return false, oops.New(err, "failed to look up grant")
	}
	return count > 0, nil
}

/*
Records that a user may see an asset at full tier. Idempotent: an existing
grant, including one created concurrently, is success rather than an error.
ON CONFLICT resolves the duplicate on the server so the statement never
raises inside a transaction; a raised unique violation would abort the
enclosing tx and turn a replayed approval into a failed commit.
*/
func GrantAccess(ctx context.Context, conn db.ConnOrTx, userID int, assetID int) error {
	_, err := conn.Exec(ctx,
		`
		INSERT INTO access_grant (user_id, asset_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, asset_id) DO NOTHING
		`,
		userID, assetID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil
		}
		return oops.New(err, "failed to create grant")
	}
	return nil
}
