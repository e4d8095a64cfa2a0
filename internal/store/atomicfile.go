package store

import (
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to path by first writing a temp sibling,
// fsyncing it, then renaming it over path. On failure the previous file
// at path, if any, is left untouched.
//
// Grounded on the teacher's own file-handling idiom in
// internal/logger (rotatingWriter: open, write, rename) and
// internal/config (Config.Save), extended with an explicit fsync before
// rename so a crash between write and rename can never leave a
// half-written file at the final path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
