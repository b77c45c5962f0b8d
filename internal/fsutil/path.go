package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotAbsolute is returned by the sub-path predicates when either argument
// is a relative path. It signals a caller defect.
var ErrNotAbsolute = errors.New("both paths must be absolute paths")

// IsDirectory reports whether path exists and is a directory
func IsDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// IsFile reports whether path exists and is a regular file
func IsFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// IsSubPath reports whether child lies strictly below parent.
// IsSubPath("/a/b", "/a/b") is false.
func IsSubPath(parent, child string) (bool, error) {
	return subPath(parent, child, true)
}

// IsWithin is IsSubPath but also true when child equals parent
func IsWithin(parent, child string) (bool, error) {
	return subPath(parent, child, false)
}

func subPath(parent, child string, notSelf bool) (bool, error) {
	if !filepath.IsAbs(parent) || !filepath.IsAbs(child) {
		return false, fmt.Errorf("%w: %q, %q", ErrNotAbsolute, parent, child)
	}

	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false, nil
	}
	if rel == "." {
		return !notSelf, nil
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel), nil
}

// ToSlash normalizes a path to forward slashes regardless of host separator
func ToSlash(path string) string {
	return strings.ReplaceAll(filepath.ToSlash(path), `\`, "/")
}

// CopyDir recursively copies src into dst, creating dst if needed
func CopyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", src, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return nil
}
