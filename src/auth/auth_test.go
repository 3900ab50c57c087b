package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	hp := HashPassword("hunter2")

	ok, err := CheckPassword("hunter2", hp)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword("hunter3", hp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordStringRoundTrip(t *testing.T) {
	hp := HashPassword("correct horse battery staple")

	parsed, err := ParsePasswordString(hp.String())
	require.NoError(t, err)
	assert.Equal(t, hp, parsed)

	ok, err := CheckPassword("correct horse battery staple", parsed)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParsePasswordStringRejectsGarbage(t *testing.T) {
	_, err := ParsePasswordString("not a password string")
	assert.Error(t, err)
}

func TestUnknownAlgorithm(t *testing.T) {
	hp := HashPassword("password")
	hp.Algorithm = "md5"

	_, err := CheckPassword("password", hp)
	assert.Error(t, err)
}

func TestArgon2idConfigRoundTrip(t *testing.T) {
	cfg := Argon2idConfig{Time: 1, Memory: 40960, Threads: 1, KeyLength: 64}

	parsed, err := ParseArgon2idConfig(cfg.String())
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
