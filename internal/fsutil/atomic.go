// Package fsutil provides the file primitives the dataset store is built on:
// directory creation and crash-safe replacement of a file's contents.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirPerm and FilePerm are the permissions used for everything markerbed
// creates. Nothing is group or world writable.
const (
	DirPerm  os.FileMode = 0755
	FilePerm os.FileMode = 0644
)

// WriteFileAtomic replaces path with data. The data is written to a temporary
// file in the same directory, synced, and renamed over path, so readers see
// either the old or the new content and never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath) // best-effort cleanup of the partial file
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting permissions on temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true

	// The rename is done; a failed directory sync only weakens durability
	// across a power loss, so it is not reported.
	_ = syncDir(dir)
	return nil
}

// ReadFileIfExists returns the content of path. A missing file is reported
// with exists == false and no error.
func ReadFileIfExists(path string) (data []byte, exists bool, err error) {
	data, err = os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// syncDir flushes directory metadata so a completed rename survives a crash.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
