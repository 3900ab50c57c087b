package etag

import (
	"testing"

	"github.com/jroots/jroots/src/access"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"
const testHash = "0a0b0c"

func TestTierSeparation(t *testing.T) {
	full := Compute(testSecret, access.TierFull, testHash)
	restricted := Compute(testSecret, access.TierRestricted, testHash)
	assert.NotEqual(t, full, restricted)
}

func TestDeterminism(t *testing.T) {
	first := Compute(testSecret, access.TierFull, testHash)
	second := Compute(testSecret, access.TierFull, testHash)
	assert.Equal(t, first, second)
}

func TestSecretMatters(t *testing.T) {
	assert.NotEqual(t,
		Compute("secret-one", access.TierFull, testHash),
		Compute("secret-two", access.TierFull, testHash),
	)
}

func TestMatches(t *testing.T) {
	token := Compute(testSecret, access.TierRestricted, testHash)

	assert.True(t, Matches(token, token))
	assert.True(t, Matches(`"`+token+`"`, token))
	assert.True(t, Matches(`W/"`+token+`"`, token))
	assert.True(t, Matches(`"something-else", "`+token+`"`, token))
	assert.False(t, Matches("", token))
	assert.False(t, Matches(`"something-else"`, token))
}
