package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"resume-editor/internal/shared/storage/object"
)

func TestSaveAndOpen(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mime, err := store.Save(ctx, "google:1", "resume.md", strings.NewReader("# Ada\n- shipped"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("# Ada\n- shipped")) {
		t.Fatalf("unexpected size %d", size)
	}
	if !strings.HasPrefix(mime, "text/plain") {
		t.Fatalf("unexpected mime %q", mime)
	}
	if !strings.HasSuffix(key, "_resume.md") {
		t.Fatalf("unexpected key %q", key)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "# Ada\n- shipped" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestSaveWithKeyAndDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.SaveWithKey(ctx, "snapshots/u/s1.json", "application/json", strings.NewReader(`{"v":1}`)); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if _, err := store.SaveWithKey(ctx, "snapshots/u/s1.json", "application/json", strings.NewReader(`{"v":2}`)); err != nil {
		t.Fatalf("SaveWithKey overwrite: %v", err)
	}
	rc, err := store.Open(ctx, "snapshots/u/s1.json")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if string(body) != `{"v":2}` {
		t.Fatalf("expected overwrite, got %q", body)
	}

	if err := store.Delete(ctx, "snapshots/u/s1.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "snapshots/u/s1.json"); err != nil {
		t.Fatalf("Delete missing should be nil: %v", err)
	}
	if _, err := store.Open(ctx, "snapshots/u/s1.json"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.Open(ctx, "../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, _, _, err := store.Save(ctx, "u", "..", strings.NewReader("x")); err == nil {
		t.Fatalf("expected bad file name to be rejected")
	}
	key, _, _, err := store.Save(ctx, "u", "../../x.md", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.Contains(key, "..") || !strings.HasSuffix(key, "_x.md") {
		t.Fatalf("path components should be stripped, got %q", key)
	}
}
