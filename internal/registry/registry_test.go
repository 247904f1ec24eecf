package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectRootFindsManifest(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "src", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	detected, name, err := DetectRoot(sub)
	if err != nil {
		t.Fatalf("DetectRoot: %v", err)
	}
	if detected != root {
		t.Errorf("DetectRoot = %q, want %q", detected, root)
	}
	if name != filepath.Base(root) {
		t.Errorf("name = %q, want %q", name, filepath.Base(root))
	}
}

func TestDetectRootNoManifestReturnsOriginal(t *testing.T) {
	dir := t.TempDir()
	detected, _, err := DetectRoot(dir)
	if err != nil {
		t.Fatalf("DetectRoot: %v", err)
	}
	abs, _ := filepath.Abs(dir)
	if detected != abs {
		t.Errorf("DetectRoot = %q, want %q", detected, abs)
	}
}

func TestTrackAndSaveLoad(t *testing.T) {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "registry.json")
	cache := filepath.Join(dir, "cache")

	r := New(regPath, cache)
	r.Track("/proj/a", "a", "2026-08-01T00:00:00Z")
	if err := r.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(regPath, cache)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e := loaded.Get("/proj/a")
	if e == nil || e.Name != "a" {
		t.Fatalf("expected entry for /proj/a, got %+v", e)
	}
}

func TestDBPathDeterministic(t *testing.T) {
	r := New("", "/cache")
	a := r.DBPath("/proj/a")
	b := r.DBPath("/proj/a")
	c := r.DBPath("/proj/b")
	if a != b {
		t.Errorf("DBPath should be deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("DBPath should differ between roots")
	}
}

func TestForget(t *testing.T) {
	r := New("", "/cache")
	r.Track("/proj/a", "a", "2026-08-01T00:00:00Z")
	r.Forget("/proj/a")
	if r.Get("/proj/a") != nil {
		t.Fatal("expected entry to be forgotten")
	}
}
