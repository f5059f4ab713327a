package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	trailingPunctRun = regexp.MustCompile(`[?!.]+$`)
)

// Normalize canonicalizes a query for cache-key matching: lowercase, trimmed,
// internal whitespace runs collapsed to one space, trailing ?/!/. runs
// stripped. Two queries normalize equal iff they share a cache entry.
func Normalize(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	normalized = whitespaceRun.ReplaceAllString(normalized, " ")
	normalized = trailingPunctRun.ReplaceAllString(normalized, "")
	return normalized
}

// HashQuery returns the SHA-256 hex digest of the normalized query. The
// digest is the lookup key, keeping key size bounded and sidestepping text
// collation in the store.
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(Normalize(query)))
	return hex.EncodeToString(sum[:])
}
