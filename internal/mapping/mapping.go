// Package mapping persists the per-post placeholder→URL table.
//
// The table is the private half of the redaction subsystem: it must live
// outside the publicly committed source tree, or the whole exercise is
// pointless. A mapping is written once at redaction time and replaced
// wholesale on regeneration; it is never mutated in place.
package mapping

import (
	"context"
	"errors"
)

// Mapping is one post's placeholder→original-URL table.
type Mapping map[string]string

// ErrNotFound is returned by Load when no mapping exists for a post. This is
// a normal condition (fresh deployment, never-generated post); callers fall
// through to the resolver's other tiers.
var ErrNotFound = errors.New("mapping not found")

// Store saves and loads per-post mappings.
type Store interface {
	// Save persists the mapping for a post, replacing any previous one.
	Save(ctx context.Context, postID string, m Mapping) error

	// Load retrieves the mapping for a post, or ErrNotFound.
	Load(ctx context.Context, postID string) (Mapping, error)

	// Close releases any resources.
	Close() error
}
