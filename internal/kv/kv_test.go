package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	if _, ok, err := s.Get(ctx, "theme"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := s.Get(ctx, "theme"); err != nil || !ok || v != "dark" {
		t.Fatalf("get: %q %v %v", v, ok, err)
	}
	if err := s.Delete(ctx, "theme"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "theme"); ok {
		t.Fatalf("expected key to be deleted")
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exercise(t, f)

	ctx := context.Background()
	if err := f.Set(ctx, "currency", "EUR"); err != nil {
		t.Fatalf("set: %v", err)
	}
	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v, ok, _ := reopened.Get(ctx, "currency"); !ok || v != "EUR" {
		t.Fatalf("value not persisted: %q %v", v, ok)
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
