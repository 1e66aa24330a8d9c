package blobstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// LocalStore keeps object bytes on disk under a public directory and the
// object index in SQLite. The directory is expected to be served statically
// at baseURL by the hosting layer.
type LocalStore struct {
	dir     string
	baseURL string
	db      *sql.DB
}

// NewLocalStore opens (creating if needed) a local store rooted at dir.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "objects"), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "index.db")+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping cache index: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS objects (
		key          TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		size         INTEGER NOT NULL,
		created_at   TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache index schema: %w", err)
	}

	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		db:      db,
	}, nil
}

// Put writes data under key. An existing key is left untouched and its URL
// returned, so concurrent racers and repeated resolutions never re-write.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}

	if _, ok, err := s.Exists(ctx, key); err != nil {
		return "", err
	} else if ok {
		return s.url(key), nil
	}

	path := filepath.Join(s.dir, "objects", key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("commit object: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO objects (key, content_type, size, created_at) VALUES (?, ?, ?, ?)`,
		key, contentType, int64(len(data)), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return "", fmt.Errorf("index object: %w", err)
	}

	return s.url(key), nil
}

// List returns indexed objects with the given key prefix.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]Object, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, content_type, size, created_at FROM objects WHERE key LIKE ? || '%' ORDER BY key`,
		prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var objects []Object
	for rows.Next() {
		var o Object
		var created string
		if err := rows.Scan(&o.Key, &o.ContentType, &o.Size, &created); err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}
		o.CreatedAt, _ = time.Parse(time.RFC3339, created)
		o.URL = s.url(o.Key)
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// Exists reports whether key is indexed.
func (s *LocalStore) Exists(ctx context.Context, key string) (Object, bool, error) {
	var o Object
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT key, content_type, size, created_at FROM objects WHERE key = ?`, key,
	).Scan(&o.Key, &o.ContentType, &o.Size, &created)
	if err == sql.ErrNoRows {
		return Object{}, false, nil
	}
	if err != nil {
		return Object{}, false, fmt.Errorf("check object: %w", err)
	}
	o.CreatedAt, _ = time.Parse(time.RFC3339, created)
	o.URL = s.url(o.Key)
	return o, true, nil
}

// Close closes the index database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) url(key string) string {
	return s.baseURL + "/" + key
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid cache key %q", key)
	}
	return nil
}
