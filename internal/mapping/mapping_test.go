package mapping

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "image-maps"))
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	m := Mapping{
		"image-placeholder-0a1b2c3d4e5f": "https://prod-files-secure.s3.amazonaws.com/a/b.jpg?X-Amz-Signature=x",
	}
	if err := store.Save(ctx, "post-123", m); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := store.Load(ctx, "post-123")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got["image-placeholder-0a1b2c3d4e5f"] != m["image-placeholder-0a1b2c3d4e5f"] {
		t.Errorf("Load() = %v, want %v", got, m)
	}
}

func TestFileStore_LoadMissingIsNotFound(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	_, err = store.Load(context.Background(), "never-generated")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_SaveReplacesWholesale(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "p", Mapping{"a": "1", "b": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, "p", Mapping{"c": "3"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got["c"] != "3" {
		t.Errorf("regeneration did not replace mapping wholesale: %v", got)
	}
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		if err := store.Save(ctx, id, Mapping{}); err == nil {
			t.Errorf("Save(%q) accepted a traversal-shaped post id", id)
		}
		if _, err := store.Load(ctx, id); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%q) did not reject the post id", id)
		}
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "private")
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if err := store.Save(context.Background(), "p", Mapping{"a": "1"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(filepath.Join(dir, "p.json"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("mapping file mode = %o, want 600", perm)
	}
}

func TestMemoryStore_CopiesOnSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	m := Mapping{"a": "1"}
	if err := store.Save(ctx, "p", m); err != nil {
		t.Fatal(err)
	}
	m["a"] = "mutated"

	got, err := store.Load(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if got["a"] != "1" {
		t.Errorf("stored mapping aliased caller memory: %v", got)
	}
}
