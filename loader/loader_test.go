package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStringMapLoader(t *testing.T) {
	m := StringMapLoader{"a": "hello"}
	src, err := m.Load("a")
	if err != nil || src != "hello" {
		t.Fatalf("Load(a) = (%q, %v), want (hello, nil)", src, err)
	}
	if _, err := m.Load("missing"); err == nil {
		t.Fatal("expected NotFoundError for missing key")
	} else if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected *NotFoundError, got %T", err)
	}
}

func TestFileSystemLoaderSuffixAndOrder(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir2, "page.twig"), []byte("from dir2"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewFileSystemLoader(".twig", dir1, dir2)
	src, err := l.Load("page")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if src != "from dir2" {
		t.Errorf("got %q, want %q", src, "from dir2")
	}

	// A key that already carries the suffix should not get it doubled.
	src2, err := l.Load("page.twig")
	if err != nil || src2 != "from dir2" {
		t.Errorf("Load with explicit suffix = (%q, %v)", src2, err)
	}
}

func TestFileSystemLoaderNotFound(t *testing.T) {
	l := NewFileSystemLoader(".twig", t.TempDir())
	if _, err := l.Load("nope"); err == nil {
		t.Fatal("expected an error for a nonexistent template")
	}
}
