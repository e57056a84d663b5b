package tracker

import "github.com/mr-tron/base58"

// ValidSignature reports whether s is a base58-encoded 64-byte ed25519
// transaction signature.
func ValidSignature(s string) bool {
	if len(s) < 64 || len(s) > 88 {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == 64
}
