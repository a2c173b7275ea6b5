package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Store provides content-addressed file storage with two-tier sharding
type Store struct {
	basePath string
	fast     *zstd.Encoder
	standard *zstd.Encoder
	decoder  *zstd.Decoder
}

func NewStore(basePath string) (*Store, error) {
	fast, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	standard, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = fast.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		_ = fast.Close()
		_ = standard.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Store{basePath: basePath, fast: fast, standard: standard, decoder: decoder}, nil
}

func (s *Store) Close() error {
	_ = s.fast.Close()
	_ = s.standard.Close()
	s.decoder.Close()
	return nil
}

// shardPath computes hash[0:2]/hash[2:4]/hash
func (s *Store) shardPath(category, hash string) string {
	if len(hash) < 4 {
		return filepath.Join(s.basePath, category, hash)
	}
	return filepath.Join(s.basePath, category, hash[0:2], hash[2:4], hash)
}

func extension(ct CompressionType) string {
	if ct == CompressionNone {
		return ".raw"
	}
	return ".zst"
}

func determineCompression(size int) CompressionType {
	if size < RawThreshold {
		return CompressionNone
	}
	if size < FastZstdMax {
		return CompressionZstdFast
	}
	return CompressionZstdDefault
}

// Put stores content and returns its hash and compression type.
func (s *Store) Put(category string, content []byte) (string, CompressionType, error) {
	hash := HashContent(content)
	ct := determineCompression(len(content))
	path := s.shardPath(category, hash) + extension(ct)

	if s.Exists(category, hash) {
		return hash, ct, nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	data := content
	switch ct {
	case CompressionZstdFast:
		data = s.fast.EncodeAll(content, nil)
	case CompressionZstdDefault:
		data = s.standard.EncodeAll(content, nil)
	}

	// temp file + rename so concurrent writers of the same hash never see a partial file
	f, err := os.CreateTemp(dir, hash+".*.tmp")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to write content: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, fmt.Errorf("failed to rename file: %w", err)
	}
	return hash, ct, nil
}

// Get retrieves content by hash.
func (s *Store) Get(category, hash string, ct CompressionType) ([]byte, error) {
	data, err := os.ReadFile(s.shardPath(category, hash) + extension(ct))
	if err != nil {
		return nil, fmt.Errorf("artifact not found: %s: %w", hash, err)
	}
	if ct == CompressionNone {
		return data, nil
	}
	return s.decoder.DecodeAll(data, nil)
}

func (s *Store) Exists(category, hash string) bool {
	for _, ext := range []string{".raw", ".zst"} {
		if _, err := os.Stat(s.shardPath(category, hash) + ext); err == nil {
			return true
		}
	}
	return false
}

func (s *Store) Delete(category, hash string) {
	_ = os.Remove(s.shardPath(category, hash) + ".raw")
	_ = os.Remove(s.shardPath(category, hash) + ".zst")
}
