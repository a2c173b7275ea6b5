// Package post scaffolds new posts and drafts.
package post

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/utils"
)

var (
	ErrEmptySlug = errors.New("title produces an empty slug")
	ErrExists    = errors.New("file already exists")
)

// Options describes the file to create.
type Options struct {
	Title  string
	Draft  bool
	Layout string
	Date   time.Time
}

// Create writes a post skeleton under cfg.Source and returns its path. Posts go
// to _posts/YYYY-MM-DD-slug.md, drafts to _drafts/slug.md.
func Create(fs afero.Fs, cfg *config.Config, opts Options) (string, error) {
	slug := utils.Slugify(opts.Title)
	if slug == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptySlug, opts.Title)
	}
	if len(slug) > 100 {
		slug = slug[:100]
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
	if opts.Layout == "" {
		opts.Layout = "post"
	}

	var file string
	if opts.Draft {
		file = filepath.Join(cfg.Source, "_drafts", slug+".md")
	} else {
		file = filepath.Join(cfg.Source, "_posts", opts.Date.Format("2006-01-02")+"-"+slug+".md")
	}
	if utils.Exists(fs, file) {
		return "", fmt.Errorf("%w: %s", ErrExists, file)
	}

	body := fmt.Sprintf("---\nlayout: %s\ntitle: %q\ndate: %s\ncategories: []\ntags: []\n---\n\nStart writing here...\n",
		opts.Layout, opts.Title, opts.Date.Format("2006-01-02 15:04:05 -0700"))
	if err := utils.WriteFileVFS(fs, file, []byte(body)); err != nil {
		return "", err
	}
	return file, nil
}
