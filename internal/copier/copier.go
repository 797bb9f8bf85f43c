// Package copier copies directory trees file by file.
//
// Destination files are overwritten, but files already under the destination
// that do not exist in the source are left in place. Nothing is pruned.
package copier

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"savemanager/internal/utils"
)

var (
	ErrSourceNotFound = errors.New("source directory not found")
	ErrSameFile       = errors.New("source and destination are the same file")
	ErrNotRegular     = errors.New("not a regular file")
)

// ProgressFunc is called after each copied file. done counts from 1 to total.
type ProgressFunc func(done, total int, rel string)

// CopyTree copies every file under src into dst at the same relative path and
// returns how many files were copied.
func CopyTree(src, dst string, progress ProgressFunc) (int, error) {
	if !utils.IsDirectory(src) {
		return 0, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
	}

	files, err := utils.ScanFiles(src)
	if err != nil {
		return 0, fmt.Errorf("failed to scan %s: %w", src, err)
	}

	if err := utils.EnsureDirectoryExists(dst); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	copied := 0
	for _, rel := range files {
		from := filepath.Join(src, filepath.FromSlash(rel))
		to := filepath.Join(dst, filepath.FromSlash(rel))

		if err := utils.EnsureDirectoryExists(filepath.Dir(to)); err != nil {
			return copied, fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := CopyFile(from, to); err != nil {
			return copied, fmt.Errorf("failed to copy %s: %w", rel, err)
		}

		copied++
		if progress != nil {
			progress(copied, len(files), rel)
		}
	}

	return copied, nil
}

// CopyFile copies one file, truncating dst if it exists. The source mode
// (kept owner-writable) and modification time are carried over. Copying a
// file onto itself fails with ErrSameFile and leaves it untouched.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegular, src)
	}
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return fmt.Errorf("%w: %s", ErrSameFile, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm()|0200)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
