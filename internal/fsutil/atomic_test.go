package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markers.csv")

	if err := WriteFileAtomic(path, []byte("first"), FilePerm); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("Content mismatch: got %q, want %q", got, "first")
	}

	if err := WriteFileAtomic(path, []byte("second"), FilePerm); err != nil {
		t.Fatalf("WriteFileAtomic (overwrite) failed: %v", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != "second" {
		t.Fatalf("Overwrite failed: got %q, want %q", got, "second")
	}
}

func TestWriteFileAtomicCreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "markers.csv")
	if err := WriteFileAtomic(path, []byte("x"), FilePerm); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if !FileExists(path) {
		t.Fatal("File was not created")
	}
}

func TestWriteFileAtomicPermissions(t *testing.T) {
	dir := t.TempDir()
	for _, perm := range []os.FileMode{0600, 0644} {
		path := filepath.Join(dir, "perm_"+perm.String())
		if err := WriteFileAtomic(path, []byte("x"), perm); err != nil {
			t.Fatalf("WriteFileAtomic failed: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("Failed to stat file: %v", err)
		}
		if info.Mode().Perm() != perm {
			t.Errorf("Permissions = %o, want %o", info.Mode().Perm(), perm)
		}
	}
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markers.csv")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := WriteFileAtomic(path, []byte(strings.Repeat("x", 1024)), FilePerm); err != nil {
				t.Errorf("WriteFileAtomic failed: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("Expected only the target file, got %v", names)
	}
}

func TestReadFileIfExists(t *testing.T) {
	dir := t.TempDir()

	data, exists, err := ReadFileIfExists(filepath.Join(dir, "missing.csv"))
	if err != nil || exists || data != nil {
		t.Fatalf("missing file: got (%q, %v, %v), want (nil, false, nil)", data, exists, err)
	}

	path := filepath.Join(dir, "present.csv")
	if err := os.WriteFile(path, []byte("hello"), FilePerm); err != nil {
		t.Fatal(err)
	}
	data, exists, err = ReadFileIfExists(path)
	if err != nil || !exists || string(data) != "hello" {
		t.Fatalf("present file: got (%q, %v, %v)", data, exists, err)
	}

	if _, _, err := ReadFileIfExists(dir); err == nil {
		t.Fatal("Expected an error when reading a directory")
	}
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "backups", "daily")
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if err := EnsureDir(nested); err != nil {
		t.Fatalf("EnsureDir on existing dir failed: %v", err)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, FilePerm); err != nil {
		t.Fatal(err)
	}
	if err := EnsureDir(file); err == nil {
		t.Fatal("Expected an error when path is a file")
	}
}
