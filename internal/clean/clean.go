// Package clean removes generated output and build caches.
package clean

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/utils"
)

// Result reports what a clean removed.
type Result struct {
	Removed   int
	Preserved int
	Cache     bool
}

// Run empties the destination, preserving keep_files, and deletes the cache dir.
func Run(fs afero.Fs, cfg *config.Config, logger *slog.Logger) (Result, error) {
	var res Result
	keep := make([]string, 0, len(cfg.KeepFiles))
	for _, k := range cfg.KeepFiles {
		if k = strings.Trim(utils.ToSlash(k), "/"); k != "" {
			keep = append(keep, path.Clean(k))
		}
	}

	dest := cfg.DestinationPath()
	if utils.Exists(fs, dest) {
		if len(keep) == 0 {
			logger.Info("Removing destination", "path", dest)
			if err := fs.RemoveAll(dest); err != nil {
				return res, fmt.Errorf("failed to remove %s: %w", dest, err)
			}
			res.Removed++
		} else if err := cleanDir(fs, dest, "", keep, &res, logger); err != nil {
			return res, err
		}
	}

	cachePath := cfg.CachePath()
	if utils.Exists(fs, cachePath) {
		logger.Info("Removing cache", "path", cachePath)
		if err := fs.RemoveAll(cachePath); err != nil {
			return res, fmt.Errorf("failed to remove %s: %w", cachePath, err)
		}
		res.Cache = true
	}
	return res, nil
}

// cleanDir removes the entries of dir except kept paths, descending into
// directories that contain a kept path.
func cleanDir(fs afero.Fs, dir, rel string, keep []string, res *Result, logger *slog.Logger) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, entry := range entries {
		r := path.Join(rel, entry.Name())
		full := filepath.Join(dir, entry.Name())
		switch {
		case kept(r, keep):
			res.Preserved++
		case entry.IsDir() && holdsKept(r, keep):
			if err := cleanDir(fs, full, r, keep, res, logger); err != nil {
				return err
			}
		default:
			logger.Debug("Removing", "path", full)
			if err := fs.RemoveAll(full); err != nil {
				return fmt.Errorf("failed to remove %s: %w", full, err)
			}
			res.Removed++
		}
	}
	return nil
}

func kept(rel string, keep []string) bool {
	for _, k := range keep {
		if utils.IsWithin(rel, k) {
			return true
		}
	}
	return false
}

func holdsKept(rel string, keep []string) bool {
	for _, k := range keep {
		if strings.HasPrefix(k, rel+"/") {
			return true
		}
	}
	return false
}
