package domain

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns prefix, a dash and 16 random hex digits, e.g. "chap-9f2c...".
// Proposals use "prop", chapters "chap", sessions "sess" and tasks "task".
func NewID(prefix string) string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return prefix + "-" + hex.EncodeToString(b[:])
}
