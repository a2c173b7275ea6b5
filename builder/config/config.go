// Loads _config.yml and the .env file next to it
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// CollectionConfig is one entry of the `collections:` block.
type CollectionConfig struct {
	Output    bool   `yaml:"output"`
	Permalink string `yaml:"permalink"`
}

// Collections accepts both the map form and the plain list of names.
type Collections map[string]CollectionConfig

func (c *Collections) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*c = make(Collections, len(names))
		for _, n := range names {
			(*c)[n] = CollectionConfig{}
		}
		return nil
	}
	m := map[string]CollectionConfig{}
	if err := node.Decode(&m); err != nil {
		return err
	}
	*c = m
	return nil
}

type MarkdownConfig struct {
	Math bool `yaml:"math"`
}

type Config struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	URL         string `yaml:"url"`
	BaseURL     string `yaml:"baseurl"`

	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	LayoutsDir  string `yaml:"layouts_dir"`
	IncludesDir string `yaml:"includes_dir"`
	DataDir     string `yaml:"data_dir"`
	CacheDir    string `yaml:"cache_dir"`
	ThemeDir    string `yaml:"theme_dir"`

	Collections Collections `yaml:"collections"`
	Exclude     []string    `yaml:"exclude"`
	Include     []string    `yaml:"include"`
	KeepFiles   []string    `yaml:"keep_files"`

	Permalink        string `yaml:"permalink"`
	PaginatePath     string `yaml:"paginate_path"`
	ExcerptSeparator string `yaml:"excerpt_separator"`

	HighlightTheme string         `yaml:"highlight_theme"`
	Markdown       MarkdownConfig `yaml:"markdown_options"`

	Incremental bool `yaml:"incremental"`
	RenderCache bool `yaml:"render_cache"`
	ShowDrafts  bool `yaml:"show_drafts"`
	Future      bool `yaml:"future"`
	Unpublished bool `yaml:"unpublished"`
	LimitPosts  int  `yaml:"limit_posts"`
	Workers     int  `yaml:"workers"`
	Minify      bool `yaml:"minify"`
	Verbose     bool `yaml:"verbose"`

	// Sitemap and Feed generate sitemap.xml and feed.xml unless a page already does.
	Sitemap bool `yaml:"sitemap"`
	Feed    bool `yaml:"feed"`

	// Environment is JEKYLL_ENV, exposed as jekyll.environment.
	Environment string `yaml:"-"`
	// Extra holds every key of the config file, exposed as site.*.
	Extra map[string]any `yaml:"-"`
}

// ConfigFiles are tried in order when no explicit path is given.
var ConfigFiles = []string{"_config.yml", "_config.yaml"}

// Load reads the site configuration from source. A missing config file yields the
// defaults; a malformed one is an error. configPath may be empty.
func Load(fs afero.Fs, source, configPath string) (*Config, error) {
	cfg := Default()
	cfg.Source = source

	data, err := readConfig(fs, source, configPath)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if err := yaml.Unmarshal(data, &cfg.Extra); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if cfg.Extra == nil {
			cfg.Extra = map[string]any{}
		}
		// the source directory is decided by the caller, not the file inside it
		cfg.Source = source
	}

	cfg.Environment = environment(fs, source)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfig(fs afero.Fs, source, configPath string) ([]byte, error) {
	if configPath != "" {
		data, err := afero.ReadFile(fs, configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
		return data, nil
	}
	for _, name := range ConfigFiles {
		data, err := afero.ReadFile(fs, filepath.Join(source, name))
		if err == nil {
			return data, nil
		}
	}
	return nil, nil
}

// environment resolves JEKYLL_ENV: the process environment wins over .env.
func environment(fs afero.Fs, source string) string {
	if env := os.Getenv("JEKYLL_ENV"); env != "" {
		return env
	}
	if f, err := fs.Open(filepath.Join(source, ".env")); err == nil {
		defer func() { _ = f.Close() }()
		if vars, err := godotenv.Parse(f); err == nil && vars["JEKYLL_ENV"] != "" {
			return vars["JEKYLL_ENV"]
		}
	}
	return "development"
}

// Path resolves a directory setting against the source root.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Source, p)
}

func (c *Config) DestinationPath() string { return c.Path(c.Destination) }

func (c *Config) CachePath() string { return c.Path(c.CacheDir) }

// SiteData returns the config as the base of the `site` template variable.
func (c *Config) SiteData() map[string]any {
	site := make(map[string]any, len(c.Extra)+8)
	for k, v := range c.Extra {
		site[k] = v
	}
	site["title"] = c.Title
	site["description"] = c.Description
	site["url"] = c.URL
	site["baseurl"] = c.BaseURL
	site["permalink"] = c.Permalink
	site["paginate_path"] = c.PaginatePath
	return site
}
