package renderer

import (
	"bufio"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"

	"github.com/kiln-ssg/kiln/builder/utils"
)

// Writer puts rendered pages and copied files under the destination root and
// remembers what it wrote. Output paths are slash paths relative to the root.
type Writer struct {
	DestFs   afero.Fs
	Root     string
	minifier *minify.M

	mu      sync.Mutex
	written map[string]struct{}
}

// NewWriter returns a Writer; minifier may be nil to write output as rendered.
func NewWriter(destFs afero.Fs, root string, minifier *minify.M) *Writer {
	return &Writer{DestFs: destFs, Root: root, minifier: minifier, written: make(map[string]struct{})}
}

// Path maps an output path to its location on DestFs.
func (w *Writer) Path(outputPath string) string {
	return filepath.Join(w.Root, filepath.FromSlash(outputPath))
}

// Dirs returns the parent directories of outputs, for creation before a batch.
func (w *Writer) Dirs(outputs []string) []string {
	seen := make(map[string]struct{}, len(outputs))
	dirs := make([]string, 0, len(outputs))
	for _, o := range outputs {
		d := filepath.Dir(w.Path(o))
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// WritePage writes rendered text. The parent directory must exist.
func (w *Writer) WritePage(outputPath string, content string) error {
	dest := w.Path(outputPath)
	f, err := w.DestFs.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", dest, err)
	}

	bw := bufio.NewWriterSize(f, utils.MaxBufferSize)
	data := []byte(content)
	if w.minifier != nil {
		data = utils.Minify(w.minifier, outputPath, data)
	}
	if _, err := bw.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	w.RegisterFile(outputPath)
	return nil
}

// CopyFile copies src from srcFs byte for byte.
func (w *Writer) CopyFile(srcFs afero.Fs, src, outputPath string) error {
	if err := utils.CopyFileVFS(srcFs, w.DestFs, src, w.Path(outputPath)); err != nil {
		return err
	}
	w.RegisterFile(outputPath)
	return nil
}

// RegisterFile marks outputPath as produced by this build without writing it.
func (w *Writer) RegisterFile(outputPath string) {
	w.mu.Lock()
	w.written[path.Clean(outputPath)] = struct{}{}
	w.mu.Unlock()
}

// Written reports whether outputPath was produced by this build.
func (w *Writer) Written(outputPath string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.written[path.Clean(outputPath)]
	return ok
}

// Count is the number of files produced.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}
