package website

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jroots/jroots/src/approval"
	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/db"
	"github.com/jroots/jroots/src/oops"
	"github.com/jroots/jroots/src/telegram"
)

// A verified user asks for the full-resolution image. The request is relayed
// to the reviewers synchronously; if the relay fails, the user hears about it
// now and can try again later. There is no retry queue.
func RequestImageAccess(c *RequestContext) ResponseData {
	assetID, ok := c.PathParamInt("id")
	if !ok {
		return FourOhFour(c)
	}

	form, err := c.GetFormValues()
	if err != nil {
		return c.RejectRequest("Bad form data.")
	}
	note := form.Get("note")

	err = approval.RequestAccess(c, c.Conn, c.CurrentUser, assetID, note)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return FourOhFour(c)
		}
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to relay access request"))
	}

	res := ResponseData{StatusCode: http.StatusAccepted}
	res.WriteJson(map[string]string{"status": "requested"})
	return res
}

/*
Receives Telegram updates. Always answers 200 for authenticated requests,
even when an individual callback is rejected; anything else makes Telegram
redeliver the update, and a token that failed to parse once will fail again.
*/
func TelegramWebhook(c *RequestContext) ResponseData {
	secret := c.Req.Header.Get("X-Telegram-Bot-Api-Secret-Token")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(config.Config.Telegram.WebhookSecret)) != 1 {
		return c.ErrorResponse(http.StatusForbidden)
	}

	var update telegram.Update
	err := json.NewDecoder(c.Req.Body).Decode(&update)
	if err != nil {
		// Not worth making Telegram resend it.
		c.Logger.Warn().Err(err).Msg("failed to decode Telegram update")
		return ResponseData{StatusCode: http.StatusOK}
	}

	if update.CallbackQuery == nil {
		// Some other kind of update (a message in the review chat, a chat
		// member change, ...). Not ours to handle.
		return ResponseData{StatusCode: http.StatusOK}
	}

	err = approval.HandleDecision(c, c.Conn, update.CallbackQuery)
	if err != nil {
		c.Logger.Error().Err(err).Msg("failed to handle approval decision")
	}

	return ResponseData{StatusCode: http.StatusOK}
}
