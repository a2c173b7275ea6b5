package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/kiln-ssg/kiln/builder/cache"
	"github.com/kiln-ssg/kiln/builder/run"
	"github.com/kiln-ssg/kiln/builder/utils"
	"github.com/kiln-ssg/kiln/internal/clean"
	"github.com/kiln-ssg/kiln/internal/post"
	"github.com/kiln-ssg/kiln/internal/scaffold"
)

// CleanCmd implements 'kiln clean'.
type CleanCmd struct{}

func (c *CleanCmd) Run(g *Global, cli *CLI) error {
	cfg, err := loadConfig(cli, nil)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := clean.Run(afero.NewOsFs(), cfg, g.Logger)
	if err != nil {
		return err
	}
	g.Logger.Info("Clean complete", "removed", res.Removed, "preserved", res.Preserved, "cache", res.Cache, "duration", time.Since(start))
	return nil
}

// NewCmd implements 'kiln new'.
type NewCmd struct {
	Site  NewSiteCmd  `cmd:"" help:"Create a site skeleton in the source directory"`
	Post  NewPostCmd  `cmd:"" help:"Create a dated post in _posts"`
	Draft NewDraftCmd `cmd:"" help:"Create a draft in _drafts"`
}

type NewSiteCmd struct {
	Title string `arg:"" optional:"" help:"Site title" default:"My kiln site"`
}

func (c *NewSiteCmd) Run(g *Global, cli *CLI) error {
	res, err := scaffold.Run(afero.NewOsFs(), cli.Source, c.Title, g.Logger)
	if err != nil {
		return err
	}
	for _, f := range res.Created {
		fmt.Printf("created %s\n", f)
	}
	return nil
}

type NewPostCmd struct {
	Title  string `arg:"" help:"Post title"`
	Layout string `help:"Layout of the new post" default:"post"`
}

func (c *NewPostCmd) Run(g *Global, cli *CLI) error {
	return createPost(cli, post.Options{Title: c.Title, Layout: c.Layout})
}

type NewDraftCmd struct {
	Title  string `arg:"" help:"Draft title"`
	Layout string `help:"Layout of the new draft" default:"post"`
}

func (c *NewDraftCmd) Run(g *Global, cli *CLI) error {
	return createPost(cli, post.Options{Title: c.Title, Layout: c.Layout, Draft: true})
}

func createPost(cli *CLI, opts post.Options) error {
	cfg, err := loadConfig(cli, nil)
	if err != nil {
		return err
	}
	file, err := post.Create(afero.NewOsFs(), cfg, opts)
	if err != nil {
		return err
	}
	fmt.Printf("created %s\n", file)
	return nil
}

// CacheCmd implements 'kiln cache'.
type CacheCmd struct {
	Stats   CacheStatsCmd   `cmd:"" help:"Show cache statistics"`
	Inspect CacheInspectCmd `cmd:"" help:"Show the cache entry and dependency edges of a file"`
	Clear   CacheClearCmd   `cmd:"" help:"Delete all cache data"`
}

func openIncremental(cli *CLI) (*cache.Incremental, string, error) {
	cfg, err := loadConfig(cli, nil)
	if err != nil {
		return nil, "", err
	}
	inc, loaded := cache.LoadIncremental(afero.NewOsFs(), cfg.Source, filepath.Join(cfg.CachePath(), cache.IncrementalFile))
	if !loaded {
		return nil, "", fmt.Errorf("no incremental cache in %s", cfg.CachePath())
	}
	return inc, cfg.CachePath(), nil
}

type CacheStatsCmd struct{}

func (c *CacheStatsCmd) Run(g *Global, cli *CLI) error {
	inc, dir, err := openIncremental(cli)
	if err != nil {
		return err
	}
	edges := 0
	for _, f := range inc.Files() {
		edges += len(inc.Dependencies(f))
	}
	fmt.Println("Cache Statistics")
	fmt.Println("────────────────────────────────────────")
	fmt.Printf("Directory:        %s\n", dir)
	fmt.Printf("Tracked files:    %d\n", inc.Len())
	fmt.Printf("Dependency edges: %d\n", edges)

	storeDir := filepath.Join(dir, run.RenderStoreDir)
	if !utils.Exists(afero.NewOsFs(), storeDir) {
		fmt.Printf("Render store:     disabled\n")
		return nil
	}
	store, err := cache.OpenRenderStore(storeDir)
	if err != nil {
		return fmt.Errorf("failed to open render store: %w", err)
	}
	defer func() { _ = store.Close() }()
	fmt.Printf("Render store:     %d entries\n", store.Len())
	return nil
}

type CacheInspectCmd struct {
	Path string `arg:"" help:"Source-relative path"`
}

func (c *CacheInspectCmd) Run(g *Global, cli *CLI) error {
	inc, _, err := openIncremental(cli)
	if err != nil {
		return err
	}
	key := utils.ToSlash(c.Path)
	fmt.Printf("Path:          %s\n", key)
	fmt.Printf("Modified:      %v\n", inc.IsModified(key))
	fmt.Printf("Needs rebuild: %v\n", inc.NeedsRebuild(key))
	fmt.Printf("Depends on:    %v\n", inc.Dependencies(key))
	fmt.Printf("Dependents:    %v\n", inc.Dependents(key))
	fmt.Printf("Affected:      %v\n", inc.GetAffectedFiles(key))
	return nil
}

type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(g *Global, cli *CLI) error {
	cfg, err := loadConfig(cli, nil)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(cfg.CachePath()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	g.Logger.Info("Cache cleared", "path", cfg.CachePath())
	return nil
}
