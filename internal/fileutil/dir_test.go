package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	t.Run("creates nested directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a", "b", "c")
		if err := EnsureDir(path); err != nil {
			t.Fatalf("EnsureDir failed: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat after EnsureDir: %v", err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", path)
		}
	})

	t.Run("existing directory is a no-op", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := EnsureDir(dir); err != nil {
			t.Fatalf("EnsureDir on existing dir failed: %v", err)
		}
	})

	t.Run("fails when path is a file", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "occupied")
		if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
		if err := EnsureDir(file); err == nil {
			t.Error("EnsureDir over a regular file should fail")
		}
	})
}

func TestEnsureDirForFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "data.db")
	if err := EnsureDirForFile(path); err != nil {
		t.Fatalf("EnsureDirForFile failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Errorf("file not creatable after EnsureDirForFile: %v", err)
	}
}
