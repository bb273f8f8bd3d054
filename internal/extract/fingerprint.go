package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintPrefix bounds how much normalized text feeds the digest, so
// very long pages hash quickly and trailing boilerplate cannot split
// otherwise identical content.
const fingerprintPrefix = 500

// Fingerprint computes a stable content hash over normalized title+content.
// Trivial formatting differences (case, whitespace) do not change the hash.
func Fingerprint(title, content string) string {
	normalized := Normalize(title + " " + content)
	if len(normalized) > fingerprintPrefix {
		normalized = normalized[:fingerprintPrefix]
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

// Normalize trims, lowercases and collapses all whitespace runs to single
// spaces.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
