package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/jroots/jroots/src/config"
	"github.com/jroots/jroots/src/logging"
	"github.com/jroots/jroots/src/oops"
)

// Tests point this at a local server.
var BaseUrl = "https://api.telegram.org"

var httpClient = &http.Client{}

// Every Bot API response comes in this envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func makeRequest(ctx context.Context, method string, apiMethod string, contentType string, body io.Reader) *http.Request {
	url := fmt.Sprintf("%s/bot%s/%s", BaseUrl, config.Config.Telegram.BotToken, apiMethod)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		panic(err)
	}
	if contentType != "" {
		req.Header.Add("Content-Type", contentType)
	}
	return req
}

func do(ctx context.Context, name string, req *http.Request, result any) error {
	res, err := httpClient.Do(req)
	if err != nil {
		return oops.New(err, "failed to reach Telegram")
	}
	defer res.Body.Close()

	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		panic(err)
	}

	var envelope apiResponse
	err = json.Unmarshal(bodyBytes, &envelope)
	if err != nil {
		logErrorResponse(ctx, name, res.StatusCode, bodyBytes)
		return oops.New(err, "failed to unmarshal Telegram response")
	}
	if !envelope.OK {
		logErrorResponse(ctx, name, res.StatusCode, bodyBytes)
		return oops.New(nil, "received error from Telegram: %s", envelope.Description)
	}

	if result != nil {
		err = json.Unmarshal(envelope.Result, result)
		if err != nil {
			return oops.New(err, "failed to unmarshal Telegram result")
		}
	}
	return nil
}

type SendMessageInput struct {
	ChatID      int64                 `json:"chat_id"`
	Text        string                `json:"text"`
	ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func SendMessage(ctx context.Context, in SendMessageInput) (*Message, error) {
	const name = "Send Message"

	payload, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}

	var msg Message
	req := makeRequest(ctx, http.MethodPost, "sendMessage", "application/json", bytes.NewReader(payload))
	err = do(ctx, name, req, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

type SendPhotoInput struct {
	ChatID  int64
	Caption string

	// Either the file handle Telegram gave us for a previous upload of the
	// same bytes, or the raw bytes themselves.
	FileID string
	Bytes  []byte

	ReplyMarkup *InlineKeyboardMarkup
}

// Sends a photo message. Prefers the cached file handle; falls back to a
// multipart upload of the raw bytes, in which case the caller should cache
// the file_id from the returned message for next time.
func SendPhoto(ctx context.Context, in SendPhotoInput) (*Message, error) {
	const name = "Send Photo"

	if in.FileID != "" {
		payload, err := json.Marshal(map[string]any{
			"chat_id":      in.ChatID,
			"photo":        in.FileID,
			"caption":      in.Caption,
			"reply_markup": in.ReplyMarkup,
		})
		if err != nil {
			panic(err)
		}

		var msg Message
		req := makeRequest(ctx, http.MethodPost, "sendPhoto", "application/json", bytes.NewReader(payload))
		err = do(ctx, name, req, &msg)
		if err != nil {
			return nil, err
		}
		return &msg, nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	writer.WriteField("chat_id", strconv.FormatInt(in.ChatID, 10))
	if in.Caption != "" {
		writer.WriteField("caption", in.Caption)
	}
	if in.ReplyMarkup != nil {
		markupJSON, err := json.Marshal(in.ReplyMarkup)
		if err != nil {
			panic(err)
		}
		writer.WriteField("reply_markup", string(markupJSON))
	}
	part, err := writer.CreateFormFile("photo", "photo.jpg")
	if err != nil {
		panic(err)
	}
	part.Write(in.Bytes)
	writer.Close()

	var msg Message
	req := makeRequest(ctx, http.MethodPost, "sendPhoto", writer.FormDataContentType(), &body)
	err = do(ctx, name, req, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Acknowledges a callback query so the button stops showing its progress
// indicator. Must happen promptly regardless of what the decision itself
// ends up doing.
func AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	const name = "Answer Callback Query"

	payload, err := json.Marshal(map[string]any{
		"callback_query_id": callbackQueryID,
		"text":              text,
	})
	if err != nil {
		panic(err)
	}

	req := makeRequest(ctx, http.MethodPost, "answerCallbackQuery", "application/json", bytes.NewReader(payload))
	return do(ctx, name, req, nil)
}

// Rewrites the caption of a previously sent photo message. Omitting
// reply_markup drops the inline keyboard, which is how resolved approval
// messages lose their buttons.
func EditMessageCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	const name = "Edit Message Caption"

	payload, err := json.Marshal(map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"caption":    caption,
	})
	if err != nil {
		panic(err)
	}

	req := makeRequest(ctx, http.MethodPost, "editMessageCaption", "application/json", bytes.NewReader(payload))
	return do(ctx, name, req, nil)
}

func logErrorResponse(ctx context.Context, name string, status int, body []byte) {
	logging.ExtractLogger(ctx).Error().
		Str("name", name).
		Int("status", status).
		Str("body", string(body)).
		Msg("error response from Telegram")
}
