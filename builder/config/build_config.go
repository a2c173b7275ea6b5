package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kiln-ssg/kiln/builder/utils"
)

const (
	DefaultPaginatePath = "/page:num/"
	DefaultCacheDir     = ".kiln-cache"
	PostsCollection     = "posts"
)

// Default returns the configuration used when _config.yml sets nothing.
func Default() *Config {
	return &Config{
		Source:           ".",
		Destination:      "_site",
		LayoutsDir:       "_layouts",
		IncludesDir:      "_includes",
		DataDir:          "_data",
		CacheDir:         DefaultCacheDir,
		Collections:      Collections{},
		Permalink:        "date",
		PaginatePath:     DefaultPaginatePath,
		ExcerptSeparator: "\n\n",
		HighlightTheme:   "github",
		Workers:          utils.GetDefaultWorkerCount(),
		Environment:      "development",
		Extra:            map[string]any{},
	}
}

// validate clamps values into range and rejects settings the build cannot work with.
func (c *Config) validate() error {
	if c.Workers < 1 {
		c.Workers = utils.GetDefaultWorkerCount()
	}
	if c.Workers > utils.MaxWorkers {
		c.Workers = utils.MaxWorkers
	}
	if c.LimitPosts < 0 {
		c.LimitPosts = 0
	}
	if !strings.Contains(c.PaginatePath, ":num") {
		c.PaginatePath = DefaultPaginatePath
	}
	if c.Permalink == "" {
		c.Permalink = "date"
	}
	if c.ExcerptSeparator == "" {
		c.ExcerptSeparator = "\n\n"
	}
	if c.HighlightTheme == "" {
		c.HighlightTheme = "github"
	}
	if c.Destination == "" {
		c.Destination = "_site"
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	c.URL = strings.TrimSuffix(c.URL, "/")

	if c.Collections == nil {
		c.Collections = Collections{}
	}
	posts := c.Collections[PostsCollection]
	posts.Output = true
	if posts.Permalink == "" {
		posts.Permalink = c.Permalink
	}
	c.Collections[PostsCollection] = posts

	for label := range c.Collections {
		if label == "" || strings.ContainsAny(label, `/\`) {
			return fmt.Errorf("%w: bad collection name %q", ErrInvalidConfig, label)
		}
	}

	if filepath.Clean(c.DestinationPath()) == filepath.Clean(c.Source) {
		return fmt.Errorf("%w: destination must differ from source", ErrInvalidConfig)
	}
	return nil
}
