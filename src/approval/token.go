package approval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jroots/jroots/src/oops"
	"github.com/jroots/jroots/src/telegram"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionDeny    Action = "deny"
)

/*
The entire state of one pending approval. There is no pending-approvals table;
everything a decision needs rides inside the message's button payloads and
comes back verbatim when a reviewer presses one. Consequences: tokens survive
restarts for free, but they must fit Telegram's 64-byte callback_data cap, and
each one must carry enough to act on without any lookup of "the request".
*/
type Token struct {
	Action  Action
	AssetID int
	Email   string
}

// Colon is the field separator, so it can never appear in an email. Addresses
// are validated against this at registration as well.
const separator = ":"

// Encodes the token, failing if it cannot fit in callback_data. Callers must
// treat that as fatal for the whole request-access operation; sending a
// message with a truncated token would strand the reviewer with buttons that
// cannot be decoded.
func (t Token) Encode() (string, error) {
	if strings.Contains(t.Email, separator) {
		return "", oops.New(nil, "email %q contains the token separator", t.Email)
	}
	encoded := fmt.Sprintf("%s%s%d%s%s", t.Action, separator, t.AssetID, separator, t.Email)
	if len(encoded) > telegram.CallbackDataMaxBytes {
		return "", oops.New(nil, "token %q is %d bytes, over the %d-byte callback data limit", encoded, len(encoded), telegram.CallbackDataMaxBytes)
	}
	return encoded, nil
}

// Decodes callback data back into a decision. Data comes from an external
// channel, so anything that doesn't parse cleanly is rejected outright.
func ParseToken(data string) (Token, error) {
	parts := strings.Split(data, separator)
	if len(parts) != 3 {
		return Token{}, oops.New(nil, "expected 3 token fields, got %d", len(parts))
	}

	action := Action(parts[0])
	if action != ActionApprove && action != ActionDeny {
		return Token{}, oops.New(nil, "unknown token action %q", parts[0])
	}

	assetID, err := strconv.Atoi(parts[1])
	if err != nil {
		return Token{}, oops.New(err, "bad asset id in token")
	}

	if parts[2] == "" {
		return Token{}, oops.New(nil, "empty email in token")
	}

	return Token{
		Action:  action,
		AssetID: assetID,
		Email:   parts[2],
	}, nil
}
