package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// IncrementalFile is the cache file name inside the cache directory.
const IncrementalFile = "incremental.json"

// Incremental records the last seen mtime of every source file and the
// dependency edges between them. Keys are slash paths relative to the source root.
type Incremental struct {
	mu   sync.RWMutex
	fs   afero.Fs
	root string
	path string

	mtimes       map[string]time.Time
	dependencies map[string]map[string]struct{}
	dependents   map[string]map[string]struct{}
}

// incrementalDoc is the on-disk shape.
type incrementalDoc struct {
	MTimes       map[string]time.Time `json:"mtimes"`
	Dependencies map[string][]string  `json:"dependencies"`
	Dependents   map[string][]string  `json:"dependents"`
}

// NewIncremental returns an empty cache that stats files under root and saves to path.
func NewIncremental(fs afero.Fs, root, path string) *Incremental {
	return &Incremental{
		fs:           fs,
		root:         root,
		path:         path,
		mtimes:       make(map[string]time.Time),
		dependencies: make(map[string]map[string]struct{}),
		dependents:   make(map[string]map[string]struct{}),
	}
}

// LoadIncremental reads the cache file. A missing, unreadable or corrupt file
// yields an empty cache; the second return value reports whether data was loaded.
func LoadIncremental(fs afero.Fs, root, path string) (*Incremental, bool) {
	c := NewIncremental(fs, root, path)

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return c, false
	}
	var doc incrementalDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return c, false
	}

	for k, v := range doc.MTimes {
		c.mtimes[k] = v
	}
	// Edges are rebuilt from the forward half so the mirror invariant holds
	// even for a hand-edited file.
	for file, deps := range doc.Dependencies {
		for _, dep := range deps {
			c.addEdge(file, dep)
		}
	}
	return c, true
}

// Save writes the cache as JSON, creating the cache directory when needed.
func (c *Incremental) Save() error {
	c.mu.RLock()
	doc := incrementalDoc{
		MTimes:       make(map[string]time.Time, len(c.mtimes)),
		Dependencies: setMapToLists(c.dependencies),
		Dependents:   setMapToLists(c.dependents),
	}
	for k, v := range c.mtimes {
		doc.MTimes[k] = v
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode incremental cache: %w", err)
	}
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write incremental cache: %w", err)
	}
	return nil
}

func (c *Incremental) stat(p string) (time.Time, error) {
	full := filepath.FromSlash(p)
	if !filepath.IsAbs(full) {
		full = filepath.Join(c.root, full)
	}
	info, err := c.fs.Stat(full)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// IsModified reports true when p has no entry, cannot be stat'ed, or is newer than its entry.
func (c *Incremental) IsModified(p string) bool {
	c.mu.RLock()
	cached, ok := c.mtimes[p]
	c.mu.RUnlock()
	if !ok {
		return true
	}
	current, err := c.stat(p)
	if err != nil {
		return true
	}
	return current.After(cached)
}

// NeedsRebuild reports whether p or any of its direct dependencies is modified.
// Second-order dependencies are not consulted; use GetAffectedFiles for that.
func (c *Incremental) NeedsRebuild(p string) bool {
	if c.IsModified(p) {
		return true
	}
	for _, dep := range c.Dependencies(p) {
		if c.IsModified(dep) {
			return true
		}
	}
	return false
}

// UpdateMTime records the current mtime of p. Files that cannot be stat'ed are forgotten.
func (c *Incremental) UpdateMTime(p string) {
	current, err := c.stat(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		delete(c.mtimes, p)
		return
	}
	c.mtimes[p] = current
}

// AddDependency records that file depends on dep, with the mirrored dependent edge.
func (c *Incremental) AddDependency(file, dep string) {
	if file == "" || dep == "" || file == dep {
		return
	}
	c.mu.Lock()
	c.addEdge(file, dep)
	c.mu.Unlock()
}

func (c *Incremental) addEdge(file, dep string) {
	if c.dependencies[file] == nil {
		c.dependencies[file] = make(map[string]struct{})
	}
	c.dependencies[file][dep] = struct{}{}
	if c.dependents[dep] == nil {
		c.dependents[dep] = make(map[string]struct{})
	}
	c.dependents[dep][file] = struct{}{}
}

// ClearDependencies drops every forward edge of file and the matching dependent edges.
func (c *Incremental) ClearDependencies(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for dep := range c.dependencies[file] {
		if back := c.dependents[dep]; back != nil {
			delete(back, file)
			if len(back) == 0 {
				delete(c.dependents, dep)
			}
		}
	}
	delete(c.dependencies, file)
}

// Forget removes p entirely: its mtime and its own dependency edges.
func (c *Incremental) Forget(p string) {
	c.ClearDependencies(p)
	c.mu.Lock()
	delete(c.mtimes, p)
	c.mu.Unlock()
}

// Dependencies returns the direct dependencies of file, sorted.
func (c *Incremental) Dependencies(file string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.dependencies[file])
}

// Dependents returns the files that directly depend on p, sorted.
func (c *Incremental) Dependents(p string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.dependents[p])
}

// GetAffectedFiles walks the dependents graph breadth first and returns every file
// that directly or transitively depends on p. p itself is not included.
func (c *Incremental) GetAffectedFiles(p string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := map[string]struct{}{p: {}}
	queue := []string{p}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for next := range c.dependents[cur] {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	slices.Sort(out)
	return out
}

// Files returns every path the cache knows, sorted: paths with a recorded
// mtime and dependency targets, which may not have one yet.
func (c *Incremental) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.mtimes)+len(c.dependents))
	for k := range c.mtimes {
		out = append(out, k)
	}
	for k, set := range c.dependents {
		if _, ok := c.mtimes[k]; !ok && len(set) > 0 {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of tracked files.
func (c *Incremental) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mtimes)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func setMapToLists(m map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, set := range m {
		if len(set) > 0 {
			out[k] = sortedKeys(set)
		}
	}
	return out
}
