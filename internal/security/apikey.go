package security

import (
	"crypto/hmac"
	"crypto/sha256"
)

// KeyMatches compares a presented function key against the configured one
// without leaking timing. Comparison is over HMAC digests so unequal key
// lengths do not short-circuit.
func KeyMatches(configured, presented string) bool {
	if configured == "" || presented == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte("siteinspect-key"))
	mac.Write([]byte(configured))
	want := mac.Sum(nil)

	mac = hmac.New(sha256.New, []byte("siteinspect-key"))
	mac.Write([]byte(presented))
	got := mac.Sum(nil)

	return hmac.Equal(want, got)
}
