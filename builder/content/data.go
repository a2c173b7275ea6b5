package content

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/kiln-ssg/kiln/builder/utils"
)

// LoadData reads the data directory into nested maps: _data/a/b.yml becomes
// site.data.a.b. Files that fail to parse are logged and left out.
func (l *Loader) LoadData() (map[string]any, error) {
	root := l.cfg.Path(l.cfg.DataDir)
	data := map[string]any{}
	if _, err := l.fs.Stat(root); err != nil {
		return data, nil
	}

	err := afero.Walk(l.fs, root, func(p string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		rel, err := utils.SafeRel(root, p)
		if err != nil || hidden(path.Base(rel)) {
			return nil
		}
		ext := strings.ToLower(path.Ext(rel))
		switch ext {
		case ".yml", ".yaml", ".json", ".csv":
		default:
			return nil
		}

		raw, err := afero.ReadFile(l.fs, p)
		if err != nil {
			l.logger.Warn("Failed to read data file", "path", p, "error", err)
			return nil
		}
		val, err := decodeData(ext, raw)
		if err != nil {
			l.logger.Warn("Failed to parse data file", "path", p, "error", err)
			return nil
		}

		parts := strings.Split(strings.TrimSuffix(rel, path.Ext(rel)), "/")
		node := data
		for _, dir := range parts[:len(parts)-1] {
			next, ok := node[dir].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[dir] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = val
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read data dir %s: %w", filepath.ToSlash(root), err)
	}
	return data, nil
}

func decodeData(ext string, raw []byte) (any, error) {
	var val any
	switch ext {
	case ".json":
		if err := json.Unmarshal(raw, &val); err != nil {
			return nil, err
		}
	case ".csv":
		return decodeCSV(raw)
	default:
		if err := yaml.Unmarshal(raw, &val); err != nil {
			return nil, err
		}
	}
	return val, nil
}

// decodeCSV turns a CSV file with a header row into a list of row maps.
func decodeCSV(raw []byte) ([]any, error) {
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []any{}, nil
	}
	header := records[0]
	rows := make([]any, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
