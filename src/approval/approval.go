package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/jroots/jroots/src/access"
	"github.com/jroots/jroots/src/assets"
	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/email"
	"github.com/jroots/jroots/src/logging"
	"github.com/jroots/jroots/src/models"
	"github.com/jroots/jroots/src/oops"
	"github.com/jroots/jroots/src/telegram"
)

/*
The approval workflow. A verified user asks for full access to an image; the
image is relayed to the review chat with Approve/Deny buttons; a reviewer's
button press comes back as a callback carrying the original token, and the
decision is applied with no pending-request state on our side.
*/

// Relays an access request to the review chat. Both button tokens are encoded
// up front so an unencodable request fails before anything is sent. The photo
// goes up by cached Telegram file handle when we have one; otherwise we upload
// the original bytes and remember the handle for next time.
func RequestAccess(ctx context.Context, conn db.ConnOrTx, user *models.User, assetID int, note string) error {
	approveData, err := Token{Action: ActionApprove, AssetID: assetID, Email: user.Email}.Encode()
	if err != nil {
		return oops.New(err, "cannot request access for user %d", user.ID)
	}
	denyData, err := Token{Action: ActionDeny, AssetID: assetID, Email: user.Email}.Encode()
	if err != nil {
		return oops.New(err, "cannot request access for user %d", user.ID)
	}

	asset, err := assets.GetByID(ctx, conn, assetID)
	if err != nil {
		return err
	}

	caption := fmt.Sprintf("%s (%s) requests full access to image #%d.", user.Username, user.Email, assetID)
	if note != "" {
		caption += "\n\n" + note
	}
	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "Approve", CallbackData: approveData},
			{Text: "Deny", CallbackData: denyData},
		}},
	}

	in := telegram.SendPhotoInput{
		ChatID:      config.Config.Telegram.ReviewChatID,
		Caption:     caption,
		ReplyMarkup: markup,
	}
	if asset.TelegramFileID != nil {
		in.FileID = *asset.TelegramFileID
	} else {
		in.Bytes = asset.Original
	}

	msg, err := telegram.SendPhoto(ctx, in)
	if err != nil {
		return oops.New(err, "failed to relay access request")
	}

	if asset.TelegramFileID == nil {
		if photo := msg.BestPhoto(); photo != nil {
			err = assets.SetTelegramFileID(ctx, conn, assetID, photo.FileID)
			if err != nil {
				// The request itself went through; the next one just
				// uploads the bytes again.
				logging.ExtractLogger(ctx).Error().Err(err).Msg("failed to cache Telegram file id")
			}
		}
	}

	return nil
}

/*
Applies a reviewer's decision. The callback is always acknowledged, with text
describing the outcome, so the reviewer's client stops spinning no matter what
happened; the durable work (the grant) commits before that acknowledgment, and
the cosmetic work (rewriting the message so the buttons disappear) happens
afterward, asynchronously, because its failure must not affect the decision.

A denial leaves no trace: the user can simply ask again.
*/
func HandleDecision(ctx context.Context, conn db.ConnOrTx, cb *telegram.CallbackQuery) error {
	token, err := ParseToken(cb.Data)
	if err != nil {
		answerCallback(ctx, cb, "This decision could not be decoded.")
		return oops.New(err, "rejected decision callback")
	}

	switch token.Action {
	case ActionApprove:
		user, err := fetchUserByEmail(ctx, conn, token.Email)
		if err != nil {
			if err == db.NotFound {
				// The account may have been deleted since the request went
				// out. Leave a trail for the admins; there is nothing to
				// grant against.
				recordAdminEvent(ctx, conn, token.AssetID,
					fmt.Sprintf("An approval for %s on image #%d could not be applied: no account has that email.", token.Email, token.AssetID),
				)
				answerCallback(ctx, cb, fmt.Sprintf("No account found for %s.", token.Email))
				return nil
			}
			answerCallback(ctx, cb, "Something went wrong; the grant was NOT created.")
			return err
		}

		err = grantInTx(ctx, conn, user.ID, token.AssetID)
		if err != nil {
			answerCallback(ctx, cb, "Something went wrong; the grant was NOT created.")
			return err
		}

		answerCallback(ctx, cb, "Access granted.")
		finalizeMessage(ctx, cb, fmt.Sprintf("✅ Approved for %s by %s.", token.Email, cb.From.FirstName))
		notifyUser(ctx, user, token.AssetID)
	case ActionDeny:
		answerCallback(ctx, cb, "Request denied.")
		finalizeMessage(ctx, cb, fmt.Sprintf("🚫 Denied by %s.", cb.From.FirstName))
	}

	return nil
}

func fetchUserByEmail(ctx context.Context, conn db.ConnOrTx, emailAddress string) (*models.User, error) {
	return db.QueryOne[models.User](ctx, conn,
		`
		SELECT id, username, password, email, date_joined, last_login, is_admin, status
		FROM jroots_user
		WHERE LOWER(email) = LOWER($1)
		`,
		emailAddress,
	)
}

func grantInTx(ctx context.Context, conn db.ConnOrTx, userID int, assetID int) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	err = access.GrantAccess(ctx, tx, userID, assetID)
	if err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit grant")
	}
	return nil
}

// Failures here only cost the admins a feed entry, never the decision itself.
func recordAdminEvent(ctx context.Context, conn db.ConnOrTx, assetID int, message string) {
	_, err := conn.Exec(ctx,
		`
		INSERT INTO admin_event (asset_id, message)
		VALUES ($1, $2)
		`,
		assetID, message,
	)
	if err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Msg("failed to record admin event")
	}
}

func answerCallback(ctx context.Context, cb *telegram.CallbackQuery, text string) {
	err := telegram.AnswerCallbackQuery(ctx, cb.ID, text)
	if err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Msg("failed to answer callback query")
	}
}

// Rewrites the review message to record the outcome and shed its buttons. The
// edit is display-only; a stale button press that sneaks through anyway is
// harmless because grants are idempotent.
func finalizeMessage(ctx context.Context, cb *telegram.CallbackQuery, resolution string) {
	if cb.Message == nil {
		// Telegram stops attaching the message once it is too old.
		return
	}

	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	caption := cb.Message.Caption + "\n\n" + resolution
	logger := logging.ExtractLogger(ctx).With().Logger()

	go func() {
		editCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		editCtx = logging.AttachLoggerToContext(&logger, editCtx)
		defer logging.LogPanics(&logger)

		err := telegram.EditMessageCaption(editCtx, chatID, messageID, caption)
		if err != nil {
			logger.Error().Err(err).Msg("failed to finalize review message")
		}
	}()
}

func notifyUser(ctx context.Context, user *models.User, assetID int) {
	logger := logging.ExtractLogger(ctx).With().Logger()

	go func() {
		mailCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		mailCtx = logging.AttachLoggerToContext(&logger, mailCtx)
		defer logging.LogPanics(&logger)

		err := email.SendAccessGrantedEmail(mailCtx, user.Email, user.Username, assetID)
		if err != nil {
			logger.Error().Err(err).Msg("failed to send access granted email")
		}
	}()
}
