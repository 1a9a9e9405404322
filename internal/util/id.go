package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a 32-char random hex identifier. A non-empty prefix
// namespaces it, e.g. NewID("vis") -> "vis_3f9c...".
func NewID(prefix string) string {
	raw := make([]byte, 16)
	_, _ = rand.Read(raw)
	id := hex.EncodeToString(raw)
	if prefix != "" {
		id = prefix + "_" + id
	}
	return id
}
