package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per post under a private directory. The
// directory must not be part of the published artifact; permissions are
// owner-only as a second line of defense.
type FileStore struct {
	dir string
}

// NewFileStore creates the private directory if needed and returns a store
// over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create mapping dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the mapping to <postID>.json atomically.
func (s *FileStore) Save(_ context.Context, postID string, m Mapping) error {
	path, err := s.path(postID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit mapping: %w", err)
	}
	return nil
}

// Load reads <postID>.json, or returns ErrNotFound.
func (s *FileStore) Load(_ context.Context, postID string) (Mapping, error) {
	path, err := s.path(postID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //#nosec G304 -- path is derived from a sanitized post id
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read mapping: %w", err)
	}

	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mapping %s: %w", postID, err)
	}
	return m, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

// path validates the post id and returns its file path. Post ids come from
// URLs and webhooks, so anything that could traverse out of the private
// directory is rejected.
func (s *FileStore) path(postID string) (string, error) {
	if postID == "" || strings.ContainsAny(postID, "/\\") || strings.Contains(postID, "..") {
		return "", fmt.Errorf("invalid post id %q", postID)
	}
	return filepath.Join(s.dir, postID+".json"), nil
}
