// Package blobstore is the durable cache for image bytes recovered from
// ephemeral storage URLs.
//
// Objects are content-addressed by a credential-free hash of the source URL
// (see internal/urlkey), so re-signed URLs for the same underlying object hit
// the same entry. Entries are written lazily on first resolution miss and are
// never invalidated or expired by this subsystem.
package blobstore

import (
	"context"
	"time"
)

// Object describes one cached entry.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Store is the thin contract over the object store. A Put followed by a List
// from the same process shows the object; callers must not assume strict
// read-after-write across process boundaries.
type Store interface {
	// Put stores data under key and returns the public URL. Writing an
	// existing key is a no-op returning the existing URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// List returns objects whose key starts with prefix; "" lists all.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Exists reports whether key is cached, returning its object if so.
	Exists(ctx context.Context, key string) (Object, bool, error)

	// Close releases any resources.
	Close() error
}
