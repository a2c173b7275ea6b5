// Package cache holds the incremental rebuild cache and the rendered-markdown store.
package cache

import (
	"encoding/hex"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"
)

// RenderRecord is a memoized markdown render. Small outputs are kept inline,
// larger ones live in the content-addressed Store under Hash.
type RenderRecord struct {
	Key         string          `msgpack:"key"`
	Inline      []byte          `msgpack:"inline,omitempty"`
	Hash        string          `msgpack:"hash,omitempty"`
	Compression CompressionType `msgpack:"compression"`
	Size        int             `msgpack:"size"`
	CreatedAt   int64           `msgpack:"created_at"`
}

// CompressionType indicates how an artifact is stored
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionZstdFast
	CompressionZstdDefault
)

const (
	InlineHTMLThreshold = 32 * 1024 // renders below this stay in the DB record
	RawThreshold        = 8 * 1024
	FastZstdMax         = 128 * 1024
	SchemaVersion       = 1
)

// HashContent computes BLAKE3 hash of content and returns hex string
func HashContent(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RenderKey derives a store key from the parts that determine a render.
func RenderKey(parts ...string) string {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
