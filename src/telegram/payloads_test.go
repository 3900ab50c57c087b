package telegram

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateClassification(t *testing.T) {
	t.Run("callback query", func(t *testing.T) {
		var update Update
		err := json.Unmarshal([]byte(`{
			"update_id": 10001,
			"callback_query": {
				"id": "4382bfdwdsb323b2d9",
				"from": {"id": 1111111, "is_bot": false, "first_name": "Reviewer"},
				"message": {
					"message_id": 1365,
					"chat": {"id": -100123456, "type": "supergroup"},
					"caption": "alice (alice@example.com) requests full access to image #3."
				},
				"data": "approve:3:alice@example.com"
			}
		}`), &update)
		require.NoError(t, err)
		require.NotNil(t, update.CallbackQuery)
		assert.Equal(t, "approve:3:alice@example.com", update.CallbackQuery.Data)
		assert.Equal(t, int64(-100123456), update.CallbackQuery.Message.Chat.ID)
	})

	t.Run("plain message is not a callback", func(t *testing.T) {
		var update Update
		err := json.Unmarshal([]byte(`{
			"update_id": 10002,
			"message": {
				"message_id": 1366,
				"chat": {"id": -100123456, "type": "supergroup"},
				"text": "hello"
			}
		}`), &update)
		require.NoError(t, err)
		assert.Nil(t, update.CallbackQuery)
		assert.NotNil(t, update.Message)
	})

	t.Run("unknown update kind", func(t *testing.T) {
		var update Update
		err := json.Unmarshal([]byte(`{"update_id": 10003, "chat_member": {}}`), &update)
		require.NoError(t, err)
		assert.Nil(t, update.CallbackQuery)
		assert.Nil(t, update.Message)
	})
}

func TestBestPhoto(t *testing.T) {
	msg := &Message{
		Photo: []PhotoSize{
			{FileID: "small", Width: 90, Height: 60},
			{FileID: "large", Width: 1280, Height: 853},
			{FileID: "medium", Width: 320, Height: 213},
		},
	}
	best := msg.BestPhoto()
	require.NotNil(t, best)
	assert.Equal(t, "large", best.FileID)

	assert.Nil(t, (&Message{}).BestPhoto())
}
