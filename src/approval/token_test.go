package approval

import (
	"strings"
	"testing"

	"github.com/jroots/jroots/src/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	original := Token{Action: ActionApprove, AssetID: 42, Email: "user@example.com"}

	encoded, err := original.Encode()
	require.NoError(t, err)
	assert.Equal(t, "approve:42:user@example.com", encoded)

	parsed, err := ParseToken(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestTokenFitsCallbackData(t *testing.T) {
	encoded, err := Token{Action: ActionDeny, AssetID: 999999, Email: "someone@example.com"}.Encode()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(encoded), telegram.CallbackDataMaxBytes)
}

func TestOversizedTokenFailsClosed(t *testing.T) {
	longEmail := strings.Repeat("a", 60) + "@example.com"
	_, err := Token{Action: ActionApprove, AssetID: 1, Email: longEmail}.Encode()
	assert.Error(t, err)
}

func TestEmailWithSeparatorFailsClosed(t *testing.T) {
	_, err := Token{Action: ActionApprove, AssetID: 1, Email: "sneaky:user@example.com"}.Encode()
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	badInputs := []string{
		"",
		"approve",
		"approve:42",
		"approve:42:user@example.com:extra",
		"shred:42:user@example.com",
		"approve:notanumber:user@example.com",
		"approve:42:",
	}
	for _, input := range badInputs {
		_, err := ParseToken(input)
		assert.Error(t, err, "input: %q", input)
	}
}

func TestDenyRoundTrip(t *testing.T) {
	encoded, err := Token{Action: ActionDeny, AssetID: 7, Email: "x@y.co"}.Encode()
	require.NoError(t, err)

	parsed, err := ParseToken(encoded)
	require.NoError(t, err)
	assert.Equal(t, ActionDeny, parsed.Action)
	assert.Equal(t, 7, parsed.AssetID)
}
