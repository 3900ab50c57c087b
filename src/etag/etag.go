package etag

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/jroots/jroots/src/access"
)

/*
Cache validators for asset delivery. The token binds the resolved tier to the
asset's content hash under a keyed signature, so a client can never replay a
cached watermarked body as the full one (or vice versa): the tiers produce
different tokens, and the tier is always re-resolved server-side before the
expected token is computed.
*/

// Deterministic for a given (secret, tier, hash); different tiers yield
// different tokens for the same asset.
func Compute(secret string, tier access.Tier, contentHash string) string {
	payload := tier.Key() + "-" + contentHash

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// Checks an If-None-Match header against the expected token. A mismatch is
// never an error; the caller just renders in full.
func Matches(ifNoneMatch string, expected string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		candidate = strings.Trim(candidate, `"`)
		if candidate == expected {
			return true
		}
	}
	return false
}
