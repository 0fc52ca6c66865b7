package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// moveDirectory renames src to dst. When the rename is refused (seen with
// access-denied errors on managed Windows machines) the tree is copied and
// src removed instead.
func moveDirectory(src, dst string) (copied bool, err error) {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return false, nil
	}
	if err := copyDirectory(src, dst); err != nil {
		return true, fmt.Errorf("rename failed (%v) and copy failed: %w", renameErr, err)
	}
	if err := os.RemoveAll(src); err != nil {
		return true, fmt.Errorf("failed to remove %s after copy: %w", src, err)
	}
	return true, nil
}

// copyDirectory recursively copies src to dst, preserving file modes and
// symlinks.
func copyDirectory(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(dst, relPath)

		if info.Mode()&os.ModeSymlink != 0 {
			return copySymlink(path, targetPath)
		}
		if info.IsDir() {
			return os.MkdirAll(targetPath, info.Mode().Perm()|0700)
		}
		return copyFile(path, targetPath, info.Mode())
	})
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("failed to read symlink: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	_ = os.Remove(dst)
	if err := os.Symlink(target, dst); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return fmt.Errorf("failed to copy: %w", err)
	}
	return dstFile.Close()
}
