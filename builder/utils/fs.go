package utils

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ToSlash converts a native path into the slash form used for cache keys and URLs.
func ToSlash(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), "\\", "/")
}

// SafeRel returns target relative to base in slash form. It refuses results
// that escape base.
func SafeRel(base, target string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return "", err
	}
	rel = ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path traversal detected: %s escapes %s", target, base)
	}
	return rel, nil
}

// IsWithin reports whether slash path p equals dir or lies below it.
func IsWithin(p, dir string) bool {
	p = path.Clean(p)
	dir = path.Clean(dir)
	if dir == "." || dir == "" {
		return false
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func Exists(fs afero.Fs, p string) bool {
	_, err := fs.Stat(p)
	return err == nil
}

func IsFile(fs afero.Fs, p string) bool {
	info, err := fs.Stat(p)
	return err == nil && !info.IsDir()
}

func WriteFileVFS(fs afero.Fs, p string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p, err)
	}
	if err := afero.WriteFile(fs, p, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", p, err)
	}
	return nil
}

// CopyFileVFS copies src from srcFs to dst on destFs byte for byte.
// The parent directory of dst must already exist.
func CopyFileVFS(srcFs, destFs afero.Fs, src, dst string) error {
	in, err := srcFs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := destFs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

// EnsureDirs creates every directory in dirs. It stops at the first failure.
func EnsureDirs(fs afero.Fs, dirs []string) error {
	for _, d := range dirs {
		if err := fs.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}
