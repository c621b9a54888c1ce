package hyperliquid

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// sign derives a request signature from the account's private key, the
// nonce, and the request path. Kept as a standalone function (not a method)
// so it can be swapped for a different signing scheme without touching
// Client call sites.
func sign(privateKey, nonce, path string) string {
	mac := hmac.New(sha256.New, []byte(privateKey))
	mac.Write([]byte(nonce + path))
	return hex.EncodeToString(mac.Sum(nil))
}
