// Package urlkey derives credential-free identifiers for ephemeral storage URLs.
//
// Signed URLs for the same underlying object differ only in their query string
// (a fresh signature, a fresh expiry), so every identifier here is computed from
// the canonical form of the URL: scheme, host, and path with the query and
// fragment dropped. Re-signed URLs for the same object therefore collapse to the
// same placeholder token and the same durable-cache key.
package urlkey

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"strings"
)

// TokenLen is the number of hex characters in a placeholder token.
const TokenLen = 12

// KeyLen is the number of hex characters in a durable-cache key, before the
// file extension. The placeholder token is a strict prefix of the cache key,
// which is what makes inventory-scan substring matching well-founded.
const KeyLen = 24

// Canonical returns the URL with query string and fragment removed. Input that
// does not parse as a URL is returned unchanged so that callers hashing raw
// matched text still get a deterministic value.
func Canonical(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Hash returns the full hex SHA-256 of the canonical form of raw.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(Canonical(raw)))
	return hex.EncodeToString(sum[:])
}

// Token returns the placeholder token for raw: the first TokenLen characters
// of Hash.
func Token(raw string) string {
	return Hash(raw)[:TokenLen]
}

// CacheKey returns the durable-cache object key for raw: the first KeyLen
// characters of Hash, plus the original path extension when one is present.
func CacheKey(raw string) string {
	key := Hash(raw)[:KeyLen]
	if ext := Extension(raw); ext != "" {
		key += ext
	}
	return key
}

// Extension returns the lower-cased file extension of the URL path, including
// the leading dot, or "" when the path has none. Extensions longer than five
// characters are treated as absent; they are query-string debris, not formats.
func Extension(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 6 {
		return ""
	}
	return ext
}
