package email

import (
	"net"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("name@example.com"))
	assert.True(t, IsEmail("name+tag@sub.example.co.uk"))
	assert.False(t, IsEmail("name"))
	assert.False(t, IsEmail("name@nodot"))
	assert.False(t, IsEmail("with:colon@example.com"))
	assert.False(t, IsEmail("spaces in@example.com"))
}

func TestIsConnectionError(t *testing.T) {
	assert.True(t, IsConnectionError(&net.OpError{Op: "dial"}))
	assert.False(t, IsConnectionError(&textproto.Error{Code: 550, Msg: "mailbox unavailable"}))
	assert.False(t, IsConnectionError(assert.AnError))
}

func TestMakeHeaderAddress(t *testing.T) {
	assert.Equal(t, "user@example.com", makeHeaderAddress("user@example.com", ""))
	assert.Equal(t, `"Plain Name" <user@example.com>`, makeHeaderAddress("user@example.com", "Plain Name"))
	assert.Contains(t, makeHeaderAddress("user@example.com", "Dziadek Józef"), "=?utf-8?")
}

func TestPrepMailContents(t *testing.T) {
	contents := string(prepMailContents("to@example.com", "from@example.com", "Hello", "<p>body</p>"))
	assert.Contains(t, contents, "To: to@example.com\r\n")
	assert.Contains(t, contents, "From: from@example.com\r\n")
	assert.Contains(t, contents, "Subject: Hello\r\n")
	assert.Contains(t, contents, "Content-Transfer-Encoding: quoted-printable")
	assert.True(t, strings.Contains(contents, "<p>body</p>"))
}
